package render

import (
	"errors"
	"image"
	"sort"
	"sync"
)

// ErrDecode reports a malformed or unsupported animation document.
var ErrDecode = errors.New("decode failure")

// Handle is a loaded animation document bound to a pixel buffer.
type Handle interface {
	// FrameCount is the total number of frames in the document.
	FrameCount() int
	// Duration is the document length in milliseconds.
	Duration() int64
	// Resize (re)allocates the pixel buffer. Unchanged dimensions are a no-op.
	Resize(width, height int) error
	// RenderFrame fills the buffer with frame i and returns it. The buffer is reused
	// by the next call.
	RenderFrame(i int) (*image.RGBA, error)
	// Clone loads an independent handle from the same document bytes.
	Clone() (Handle, error)
	// Release frees all resources. It is idempotent.
	Release()
	Valid() bool
}

// Renderer decodes documents into handles.
type Renderer interface {
	Name() string
	Load(doc []byte) (Handle, error)
}

// Driver presents a rendered frame: a preview surface, an LED strip, a network sink.
// Implementations must not retain img after Write returns.
type Driver interface {
	Write(img *image.RGBA) error
}

type Registry struct {
	mu sync.RWMutex
	m  map[string]Renderer
}

func NewRegistry() *Registry { return &Registry{m: map[string]Renderer{}} }

func (r *Registry) Register(rr Renderer) {
	if rr == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[rr.Name()] = rr
}

func (r *Registry) Get(name string) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rr, ok := r.m[name]
	return rr, ok
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	// Backends registers the built-in renderers into the process-wide registry.
	// It is read once, on the first call to Default.
	Backends []func(*Registry)
)

// Default returns the process-wide registry, initializing it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry()
		for _, reg := range Backends {
			reg(defaultReg)
		}
	})
	return defaultReg
}
