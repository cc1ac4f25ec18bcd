package diagnostics

import (
	"errors"

	"github.com/coreman2200/lumiplay/internal/looper"
	"github.com/coreman2200/lumiplay/internal/playback"
	"github.com/coreman2200/lumiplay/internal/render"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Event reports a playback lifecycle event such as "start", "repeat" or "end".
func Event(event string, evidence map[string]any) Diagnostic {
	return Diagnostic{
		Severity: Info,
		Code:     "animation." + event,
		Summary:  "animation " + event,
		Evidence: evidence,
	}
}

// FromError classifies err by the sentinel it wraps.
func FromError(err error, evidence map[string]any) Diagnostic {
	d := Diagnostic{
		Severity: Err,
		Code:     "error",
		Summary:  "playback failed",
		Evidence: evidence,
	}
	if err != nil {
		d.Detail = err.Error()
	}
	switch {
	case errors.Is(err, render.ErrDecode):
		d.Code = "document.decode"
		d.Summary = "animation document could not be decoded"
		d.LikelyCauses = []string{"malformed JSON", "unsupported layer kind or easing", "frame rate or frame range invalid"}
		d.SuggestedFixes = []string{"validate the document against the keyframe format", "check fr > 0 and op >= ip"}
	case errors.Is(err, playback.ErrInvalidArgument):
		d.Severity = Warn
		d.Code = "control.invalid_argument"
		d.Summary = "control value rejected"
		d.SuggestedFixes = []string{"speed must be > 0", "repeat count must be >= -1", "size must be positive"}
	case errors.Is(err, playback.ErrInvalidState):
		d.Severity = Warn
		d.Code = "control.invalid_state"
		d.Summary = "no animation loaded"
		d.SuggestedFixes = []string{"set a source and attach the view first"}
	case errors.Is(err, looper.ErrStopped):
		d.Code = "host.stopped"
		d.Summary = "render loop is not running"
	}
	return d
}
