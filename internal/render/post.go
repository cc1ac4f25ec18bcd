package render

import "image"

// Limits is the LED output stage applied after brightness. Zero values disable a stage.
//   - WhiteCap: per pixel cap on R+G+B in 0..3 (3 = no cap)
//   - ChanMA: mA per colour channel at full scale; WS2812 ≈ 20
//   - BudgetMA: global current budget in mA
//   - Knee: fraction of the budget where soft limiting begins; default 0.9
type Limits struct {
	WhiteCap float64 `yaml:"white_cap"`
	ChanMA   float64 `yaml:"chan_ma"`
	BudgetMA float64 `yaml:"budget_ma"`
	Knee     float64 `yaml:"knee"`
}

// Scale multiplies every colour channel of img by k in place. Alpha is untouched.
func Scale(img *image.RGBA, k float64) {
	if k >= 1 {
		return
	}
	if k < 0 {
		k = 0
	}
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = uint8(float64(pix[i]) * k)
		pix[i+1] = uint8(float64(pix[i+1]) * k)
		pix[i+2] = uint8(float64(pix[i+2]) * k)
	}
}

// Limit applies the white cap then the global current budget to img in place.
func Limit(img *image.RGBA, l Limits) {
	if l.WhiteCap > 0 && l.WhiteCap < 3 {
		whiteCap(img, l.WhiteCap)
	}
	if l.BudgetMA <= 0 {
		return
	}
	chanMA := l.ChanMA
	if chanMA <= 0 {
		chanMA = 20
	}
	knee := l.Knee
	if knee <= 0 || knee >= 1 {
		knee = 0.9
	}

	total := EstimateMA(img, chanMA)
	if total <= 0 {
		return
	}
	ratio := total / l.BudgetMA
	if ratio <= knee {
		return
	}
	minS := l.BudgetMA / total
	if ratio <= 1 {
		// map ratio in [knee,1] to scale in [1, budget/total]
		t := (ratio - knee) / (1 - knee)
		Scale(img, 1-t*(1-minS))
		return
	}
	Scale(img, minS)
}

// EstimateMA is the current drawn by img at chanMA per full-scale channel.
func EstimateMA(img *image.RGBA, chanMA float64) float64 {
	var sum uint64
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		sum += uint64(pix[i]) + uint64(pix[i+1]) + uint64(pix[i+2])
	}
	return float64(sum) / 255 * chanMA
}

func whiteCap(img *image.RGBA, wc float64) {
	limit := wc * 255
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		s := float64(pix[i]) + float64(pix[i+1]) + float64(pix[i+2])
		if s <= limit || s == 0 {
			continue
		}
		k := limit / s
		pix[i] = uint8(float64(pix[i]) * k)
		pix[i+1] = uint8(float64(pix[i+1]) * k)
		pix[i+2] = uint8(float64(pix[i+2]) * k)
	}
}
