package led

import (
	"image"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/lumiplay/internal/layout"
)

// StripOptions configures a WS2812 matrix wired to an SPI port.
type StripOptions struct {
	// Port is the spireg name; empty picks the first port.
	Port       string            `yaml:"port"`
	Width      int               `yaml:"width"`
	Height     int               `yaml:"height"`
	Serpentine layout.Serpentine `yaml:"serpentine"`
	FreqKHz    int64             `yaml:"freq_khz"`
}

func (o StripOptions) Layout() layout.Layout {
	return layout.Layout{Dim: layout.Dim{X: o.Width, Y: o.Height}, Order: o.Serpentine}
}

// Strip draws frames on a display.Drawer, an nrzled device or the console fallback.
type Strip struct {
	drawer  display.Drawer
	port    spi.PortCloser
	sampler *Sampler

	// SPI is false when no port was found and the strip prints at the console.
	SPI bool
}

// NewStrip binds an already opened drawer. Its bounds must hold lay.Count() pixels.
func NewStrip(d display.Drawer, lay layout.Layout) *Strip {
	return &Strip{drawer: d, sampler: NewSampler(lay)}
}

// OpenStrip initializes the host drivers and opens the SPI port. With no port available
// it falls back to printing at the console.
func OpenStrip(o StripOptions) (*Strip, error) {
	lay := o.Layout()
	if lay.Count() <= 0 {
		return nil, errors.Errorf("invalid strip size %dx%d", o.Width, o.Height)
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host init")
	}
	p, err := spireg.Open(o.Port)
	if err != nil {
		s := NewStrip(screen.New(lay.Count()), lay)
		return s, nil
	}

	freq := physic.Frequency(o.FreqKHz) * physic.KiloHertz
	if freq <= 0 {
		freq = 2500 * physic.KiloHertz
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: lay.Count(),
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		_ = p.Close()
		return nil, errors.Wrapf(err, "nrzled on %s", p)
	}
	s := NewStrip(d, lay)
	s.port = p
	s.SPI = true
	return s, nil
}

func (s *Strip) Write(img *image.RGBA) error {
	line := s.sampler.Sample(img)
	return errors.Wrap(s.drawer.Draw(s.drawer.Bounds(), line, image.Point{}), "strip draw")
}

// Close blanks the LEDs and releases the port.
func (s *Strip) Close() error {
	err := s.drawer.Halt()
	if s.port != nil {
		if cerr := s.port.Close(); err == nil {
			err = cerr
		}
	}
	return errors.Wrap(err, "strip close")
}
