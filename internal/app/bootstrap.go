package app

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/lumiplay/internal/config"
	"github.com/coreman2200/lumiplay/internal/driver/fake"
	"github.com/coreman2200/lumiplay/internal/led"
	"github.com/coreman2200/lumiplay/internal/looper"
	"github.com/coreman2200/lumiplay/internal/metrics"
	"github.com/coreman2200/lumiplay/internal/render"
	"github.com/coreman2200/lumiplay/internal/render/keyframe"
	"github.com/coreman2200/lumiplay/internal/ws"
)

// Core is the wired application: one view rendering onto the engine, the engine fanning
// out to the configured sinks and the websocket preview.
type Core struct {
	Cfg     *config.Config
	Loop    *looper.Looper
	Eng     *render.Engine
	View    *View
	WS      *ws.Server
	Metrics *metrics.Collector
	Sinks   []led.Sink
	// ConfigPath is where SaveConfig writes; empty disables saving.
	ConfigPath string

	log zerolog.Logger
}

// OpenSink opens the output selected by cfg.Driver; "none" and "sim" return nil.
func OpenSink(cfg *config.Config) (led.Sink, error) {
	switch cfg.Driver {
	case "spi":
		return led.OpenStrip(cfg.Strip)
	case "mqtt":
		return led.DialMQTT(cfg.MQTT, cfg.Strip.Layout())
	}
	return nil, nil
}

// ReadSource returns the configured document, or the built-in sample.
func ReadSource(cfg *config.Config) ([]byte, error) {
	if cfg.Animation.Source == "" {
		return keyframe.Sample, nil
	}
	b, err := os.ReadFile(cfg.Animation.Source)
	return b, errors.Wrap(err, "read source")
}

func InitCore(cfg *config.Config, log zerolog.Logger) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	params, _ := cfg.Animation.Params()

	reg := render.Default()
	rr, ok := reg.Get(cfg.Animation.Renderer)
	if !ok {
		names := reg.List()
		if len(names) == 0 {
			return nil, errors.New("no renderers registered")
		}
		log.Warn().Str("renderer", cfg.Animation.Renderer).Str("fallback", names[0]).Msg("renderer not found")
		rr, _ = reg.Get(names[0])
	}

	doc, err := ReadSource(cfg)
	if err != nil {
		return nil, err
	}

	c := &Core{
		Cfg:     cfg,
		Loop:    looper.New(),
		Eng:     render.NewEngine(),
		Metrics: metrics.New(),
		log:     log,
	}
	c.Eng.SetBrightness(cfg.Brightness)
	c.Eng.Limits = cfg.Power

	sink, err := OpenSink(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s driver", cfg.Driver)
	}
	if sink != nil {
		c.Sinks = append(c.Sinks, sink)
		c.Eng.Attach(sink)
	}
	if cfg.Driver == "sim" {
		c.Eng.Attach(&fake.Driver{Log: log.With().Str("component", "sim").Logger(), Every: 30})
	}

	w, h := cfg.Animation.Size()
	c.View = NewView(rr, c.Eng, c.Loop, log, ViewOptions{
		Params:            params,
		Width:             w,
		Height:            h,
		DriftCompensation: cfg.Animation.DriftCompensation,
		Order:             cfg.Strip.Serpentine,
	})
	c.View.SetObserver(c.Metrics.For(c.View.ID()))
	if err := c.View.SetSource(doc); err != nil {
		c.Close()
		return nil, err
	}

	c.WS = ws.NewServer(c.View, c.Loop.Do, log)
	c.WS.SetSaver(c.SaveConfig)
	c.View.SetEvents(c.WS.Push)
	c.Eng.Attach(c.WS)
	return c, nil
}

// SaveConfig writes the loaded config with the live playback settings and brightness to
// ConfigPath. It must be called on the loop.
func (c *Core) SaveConfig() error {
	if c.ConfigPath == "" {
		return errors.New("no config path")
	}
	cfg := *c.Cfg
	p := c.View.Params()
	cfg.Brightness = c.Eng.Brightness
	cfg.Animation.FrameFrom = p.FirstFrame
	cfg.Animation.FrameTo = p.LastFrame
	cfg.Animation.Speed = p.Speed
	cfg.Animation.RepeatMode = p.RepeatMode.String()
	cfg.Animation.RepeatCount = p.RepeatCount
	cfg.Animation.Width, cfg.Animation.Height = c.View.Size()
	if err := config.Save(c.ConfigPath, &cfg); err != nil {
		return errors.Wrap(err, "save config")
	}
	c.log.Info().Str("path", c.ConfigPath).Msg("config saved")
	return nil
}

// Close stops the loop, releases the animation and closes every sink. Call it once Run
// has returned.
func (c *Core) Close() {
	c.Loop.Stop()
	if c.View != nil {
		c.View.Detach()
	}
	for _, s := range c.Sinks {
		if err := s.Close(); err != nil {
			c.log.Warn().Err(err).Msg("close sink")
		}
	}
	c.Sinks = nil
}
