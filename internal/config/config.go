package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/lumiplay/internal/led"
	"github.com/coreman2200/lumiplay/internal/playback"
	"github.com/coreman2200/lumiplay/internal/render"
)

// DefaultSize is the canvas width and height used when none is configured.
const DefaultSize = 50

// Drivers accepted in Config.Driver.
var Drivers = []string{"sim", "spi", "mqtt", "none"}

type Animation struct {
	Source   string `yaml:"source"`   // document path; empty plays the built-in sample
	Renderer string `yaml:"renderer"` // registry name, e.g. "keyframe"

	FrameFrom   int     `yaml:"frame_from"`
	FrameTo     int     `yaml:"frame_to"` // < 0 plays to the document end
	Speed       float64 `yaml:"speed"`
	RepeatMode  string  `yaml:"repeat_mode"` // "restart" | "reverse"
	RepeatCount int     `yaml:"repeat_count"`
	FrameStep   int     `yaml:"frame_step"`
	AutoStart   bool    `yaml:"auto_start"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	DriftCompensation bool `yaml:"drift_compensation"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Driver     string  `yaml:"driver"` // "sim" | "spi" | "mqtt" | "none"
	Addr       string  `yaml:"addr"`
	Brightness float64 `yaml:"brightness"`

	Animation Animation        `yaml:"animation"`
	Power     render.Limits    `yaml:"power"`
	Strip     led.StripOptions `yaml:"strip,omitempty"`
	MQTT      led.MQTTOptions  `yaml:"mqtt,omitempty"`
	Log       Log              `yaml:"log"`
}

// Default plays the whole document once, forward, at normal speed on a 50×50 canvas.
func Default() Config {
	return Config{
		Driver:     "sim",
		Addr:       ":8080",
		Brightness: 1,
		Animation: Animation{
			Renderer:    "keyframe",
			FrameTo:     -1,
			Speed:       1,
			RepeatMode:  "restart",
			RepeatCount: 0,
			FrameStep:   1,
			AutoStart:   true,
		},
		Strip: led.StripOptions{Width: 16, Height: 16, FreqKHz: 2500},
		MQTT:  led.MQTTOptions{Topic: "lumiplay/stream"},
		Log:   Log{Level: "info", Pretty: true},
	}
}

// Load reads path over Default, so omitted keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	known := false
	for _, d := range Drivers {
		if c.Driver == d {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("driver %q: want one of %v", c.Driver, Drivers)
	}
	if c.Brightness < 0 || c.Brightness > 1 {
		return fmt.Errorf("brightness %v out of 0..1", c.Brightness)
	}
	if _, err := c.Animation.Params(); err != nil {
		return err
	}
	if c.Animation.Width < 0 || c.Animation.Height < 0 {
		return fmt.Errorf("size %dx%d: %w", c.Animation.Width, c.Animation.Height, playback.ErrInvalidArgument)
	}
	if c.Driver == "mqtt" && c.MQTT.URL == "" {
		return fmt.Errorf("mqtt driver needs mqtt.url")
	}
	if c.Driver == "spi" && (c.Strip.Width <= 0 || c.Strip.Height <= 0) {
		return fmt.Errorf("spi driver needs strip.width and strip.height")
	}
	return nil
}

// Params maps the animation settings onto playback parameters.
func (a Animation) Params() (playback.Params, error) {
	mode, err := playback.ParseRepeatMode(a.RepeatMode)
	if err != nil {
		return playback.Params{}, err
	}
	p := playback.Params{
		FirstFrame:  a.FrameFrom,
		LastFrame:   a.FrameTo,
		Speed:       a.Speed,
		RepeatMode:  mode,
		RepeatCount: a.RepeatCount,
		FrameStep:   a.FrameStep,
		AutoPlay:    a.AutoStart,
	}
	if !(p.Speed > 0) {
		return p, fmt.Errorf("speed %v: %w", p.Speed, playback.ErrInvalidArgument)
	}
	if p.RepeatCount < playback.Infinite {
		return p, fmt.Errorf("repeat count %d: %w", p.RepeatCount, playback.ErrInvalidArgument)
	}
	if p.FrameStep < 1 {
		return p, fmt.Errorf("frame step %d: %w", p.FrameStep, playback.ErrInvalidArgument)
	}
	return p, nil
}

// Size is the configured canvas size, DefaultSize for unset dimensions.
func (a Animation) Size() (int, int) {
	w, h := a.Width, a.Height
	if w <= 0 {
		w = DefaultSize
	}
	if h <= 0 {
		h = DefaultSize
	}
	return w, h
}
