// Package keyframe is the reference renderer: a small JSON animation document with a
// Lottie style header (v, fr, ip, op, w, h) and layers of keyframed colour fills.
package keyframe

import (
	"encoding/json"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/coreman2200/lumiplay/internal/render"
)

// Name is the registry key of this renderer.
const Name = "keyframe"

// DefaultSize is the intrinsic width and height used when a document declares none.
const DefaultSize = 50

func init() {
	render.Backends = append(render.Backends, func(r *render.Registry) { r.Register(Renderer{}) })
}

// ErrReleased is returned when rendering a released animation.
var ErrReleased = errors.New("animation released")

type Document struct {
	Version   string  `json:"v"`
	Name      string  `json:"nm,omitempty"`
	FrameRate float64 `json:"fr"`
	In        float64 `json:"ip"`
	Out       float64 `json:"op"`
	Width     int     `json:"w"`
	Height    int     `json:"h"`
	// Background is a hex colour; black when empty.
	Background string  `json:"bg,omitempty"`
	Layers     []Layer `json:"layers"`

	bg colorful.Color
}

// Layer kinds.
const (
	Solid  = "solid"
	Linear = "linear"
	Radial = "radial"
)

type Layer struct {
	Name string `json:"nm,omitempty"`
	Kind string `json:"ty"`
	// In and Out bound the frames the layer is visible on; zero Out means the whole document.
	In  float64 `json:"ip,omitempty"`
	Out float64 `json:"op,omitempty"`
	// Rect is x, y, w, h as fractions of the canvas; all zero covers the canvas.
	Rect    [4]float64 `json:"rect,omitempty"`
	Color   Color      `json:"c"`
	To      Color      `json:"c2,omitempty"`
	Opacity Scalar     `json:"o,omitempty"`
}

// Decode parses and validates a document.
func Decode(doc []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, errors.Wrapf(render.ErrDecode, "keyframe: %v", err)
	}
	if err := d.compile(); err != nil {
		return nil, errors.Wrapf(render.ErrDecode, "keyframe: %v", err)
	}
	return &d, nil
}

func (d *Document) compile() error {
	if !(d.FrameRate > 0) || math.IsInf(d.FrameRate, 0) {
		return errors.Errorf("frame rate %v", d.FrameRate)
	}
	if d.Out < d.In || d.In < 0 {
		return errors.Errorf("frame range %v..%v", d.In, d.Out)
	}
	if d.Width < 0 || d.Height < 0 {
		return errors.Errorf("size %dx%d", d.Width, d.Height)
	}
	d.bg = colorful.Color{}
	if d.Background != "" {
		c, err := colorful.Hex(d.Background)
		if err != nil {
			return errors.Wrap(err, "background")
		}
		d.bg = c
	}
	for i := range d.Layers {
		l := &d.Layers[i]
		switch l.Kind {
		case Solid, Linear, Radial:
		default:
			return errors.Errorf("layer %d: kind %q", i, l.Kind)
		}
		if err := compileColor(l.Color); err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
		if err := compileColor(l.To); err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
		for _, k := range l.Opacity {
			if !knownEase(k.Ease) {
				return errors.Errorf("layer %d: ease %q", i, k.Ease)
			}
		}
	}
	return nil
}

func compileColor(c Color) error {
	for i := range c {
		v, err := colorful.Hex(c[i].V)
		if err != nil {
			return errors.Wrapf(err, "key %d", i)
		}
		if !knownEase(c[i].Ease) {
			return errors.Errorf("key %d: ease %q", i, c[i].Ease)
		}
		c[i].c = v
	}
	return nil
}

// FrameCount is the number of frames between ip and op.
func (d *Document) FrameCount() int { return int(d.Out - d.In) }

// Duration is the document length in milliseconds.
func (d *Document) Duration() int64 {
	return int64(float64(d.FrameCount()) / d.FrameRate * 1000)
}

// Renderer loads keyframe documents.
type Renderer struct{}

func (Renderer) Name() string { return Name }

func (Renderer) Load(doc []byte) (render.Handle, error) {
	return Load(doc)
}

// Animation is a decoded document bound to its pixel buffer.
type Animation struct {
	doc *Document
	raw []byte
	buf *image.RGBA
}

func Load(doc []byte) (*Animation, error) {
	d, err := Decode(doc)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, len(doc))
	copy(raw, doc)
	return &Animation{doc: d, raw: raw}, nil
}

func (a *Animation) Document() *Document { return a.doc }

func (a *Animation) FrameCount() int {
	if a.doc == nil {
		return 0
	}
	return a.doc.FrameCount()
}

func (a *Animation) Duration() int64 {
	if a.doc == nil {
		return 0
	}
	return a.doc.Duration()
}

// IntrinsicSize is the document size, DefaultSize for unset dimensions.
func (a *Animation) IntrinsicSize() (int, int) {
	w, h := DefaultSize, DefaultSize
	if a.doc != nil && a.doc.Width > 0 {
		w = a.doc.Width
	}
	if a.doc != nil && a.doc.Height > 0 {
		h = a.doc.Height
	}
	return w, h
}

func (a *Animation) Resize(w, h int) error {
	if a.doc == nil {
		return ErrReleased
	}
	if w <= 0 || h <= 0 {
		return errors.Errorf("keyframe: size %dx%d", w, h)
	}
	if a.buf != nil && a.buf.Bounds().Dx() == w && a.buf.Bounds().Dy() == h {
		return nil
	}
	a.buf = image.NewRGBA(image.Rect(0, 0, w, h))
	return nil
}

// RenderFrame rasterizes frame i (relative to ip) into the buffer. Without a prior Resize
// the buffer takes the intrinsic size.
func (a *Animation) RenderFrame(i int) (*image.RGBA, error) {
	if a.doc == nil {
		return nil, ErrReleased
	}
	if a.buf == nil {
		if err := a.Resize(a.IntrinsicSize()); err != nil {
			return nil, err
		}
	}
	t := a.doc.In + float64(i)
	fill(a.buf, a.buf.Bounds(), a.doc.bg, 1)
	for k := range a.doc.Layers {
		drawLayer(a.buf, &a.doc.Layers[k], t)
	}
	return a.buf, nil
}

func (a *Animation) Clone() (render.Handle, error) {
	if a.doc == nil {
		return nil, ErrReleased
	}
	return Load(a.raw)
}

func (a *Animation) Release() {
	a.doc = nil
	a.buf = nil
}

func (a *Animation) Valid() bool { return a.doc != nil }
