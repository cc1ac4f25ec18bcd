package keyframe

import (
	"github.com/fogleman/ease"
	"github.com/lucasb-eyer/go-colorful"
)

// ScalarKey is one keyframe of a scalar property. T is in document frames.
type ScalarKey struct {
	T    float64 `json:"t"`
	V    float64 `json:"v"`
	Ease string  `json:"e,omitempty"`
}

// ColorKey is one keyframe of a colour property; V is a hex colour.
type ColorKey struct {
	T    float64 `json:"t"`
	V    string  `json:"v"`
	Ease string  `json:"e,omitempty"`

	c colorful.Color
}

// Scalar is a keyframed value. Keys must be sorted by T ascending.
type Scalar []ScalarKey

// Color is a keyframed colour. Keys must be sorted by T ascending.
type Color []ColorKey

var easings = map[string]func(float64) float64{
	"":           ease.Linear,
	"linear":     ease.Linear,
	"inQuad":     ease.InQuad,
	"outQuad":    ease.OutQuad,
	"inOutQuad":  ease.InOutQuad,
	"inCubic":    ease.InCubic,
	"outCubic":   ease.OutCubic,
	"inOutCubic": ease.InOutCubic,
	"inSine":     ease.InSine,
	"outSine":    ease.OutSine,
	"inOutSine":  ease.InOutSine,
	"outBounce":  ease.OutBounce,
	"hold":       func(float64) float64 { return 0 },
}

func knownEase(name string) bool {
	_, ok := easings[name]
	return ok
}

// segment finds the keys around t and the eased progress between them.
// It returns i == j when t is outside the keyed range.
func segment(n int, at func(int) (float64, string), t float64) (i, j int, u float64) {
	if t0, _ := at(0); t <= t0 {
		return 0, 0, 0
	}
	if tn, _ := at(n - 1); t >= tn {
		return n - 1, n - 1, 0
	}
	for i = 0; i < n-1; i++ {
		a, e := at(i)
		b, _ := at(i + 1)
		if t >= a && t <= b {
			if b <= a {
				return i + 1, i + 1, 0
			}
			return i, i + 1, easings[e]((t - a) / (b - a))
		}
	}
	return n - 1, n - 1, 0
}

// Eval returns the value at t. With no keys it returns def.
func (s Scalar) Eval(t, def float64) float64 {
	switch len(s) {
	case 0:
		return def
	case 1:
		return s[0].V
	}
	i, j, u := segment(len(s), func(k int) (float64, string) { return s[k].T, s[k].Ease }, t)
	if i == j {
		return s[i].V
	}
	return s[i].V + (s[j].V-s[i].V)*u
}

// Eval returns the colour at t, blended in HCL space. With no keys it returns def.
func (c Color) Eval(t float64, def colorful.Color) colorful.Color {
	switch len(c) {
	case 0:
		return def
	case 1:
		return c[0].c
	}
	i, j, u := segment(len(c), func(k int) (float64, string) { return c[k].T, c[k].Ease }, t)
	if i == j {
		return c[i].c
	}
	return c[i].c.BlendHcl(c[j].c, u).Clamped()
}
