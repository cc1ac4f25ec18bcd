package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/lumiplay/internal/app"
	"github.com/coreman2200/lumiplay/internal/config"
)

func main() {
	def := config.Default()

	// ---- Flags (remain usable; config.yaml overrides them when present) ----
	var (
		source      = flag.String("source", "", "animation document (empty plays the built-in sample)")
		renderer    = flag.String("renderer", def.Animation.Renderer, "renderer name")
		speed       = flag.Float64("speed", def.Animation.Speed, "playback speed multiplier")
		repeatMode  = flag.String("repeat-mode", def.Animation.RepeatMode, "restart | reverse")
		repeatCount = flag.Int("repeat-count", def.Animation.RepeatCount, "extra cycles after the first, -1 for infinite")
		frameFrom   = flag.Int("frame-from", 0, "first frame of the played window")
		frameTo     = flag.Int("frame-to", -1, "last frame of the played window, -1 for the document end")
		width       = flag.Int("width", 0, "canvas width (0 = 50)")
		height      = flag.Int("height", 0, "canvas height (0 = 50)")
		noAutoStart = flag.Bool("no-autostart", false, "load paused; start over the control channel")
		brightness  = flag.Float64("brightness", def.Brightness, "global brightness 0..1")
		driver      = flag.String("driver", def.Driver, "driver: sim | spi | mqtt | none")
		addr        = flag.String("addr", def.Addr, "HTTP listen address")
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		simOnly     = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		debug       = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	cfg := &def
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		cfg.Driver = *driver
		cfg.Addr = *addr
		cfg.Brightness = *brightness
		cfg.Animation.Source = *source
		cfg.Animation.Renderer = *renderer
		cfg.Animation.Speed = *speed
		cfg.Animation.RepeatMode = *repeatMode
		cfg.Animation.RepeatCount = *repeatCount
		cfg.Animation.FrameFrom = *frameFrom
		cfg.Animation.FrameTo = *frameTo
		cfg.Animation.Width = *width
		cfg.Animation.Height = *height
		cfg.Animation.AutoStart = !*noAutoStart
	} else {
		cfg = c
	}
	if *simOnly {
		cfg.Driver = "sim"
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if *debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Log.Pretty {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	core, err := app.InitCore(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	core.ConfigPath = *configPath
	log.Info().
		Str("driver", cfg.Driver).
		Str("renderer", cfg.Animation.Renderer).
		Str("instance", core.View.ID()).
		Msg("lumiplay starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := core.Run(ctx); err != nil {
		core.Close()
		log.Fatal().Err(err).Msg("run")
	}
	core.Close()
	log.Info().Msg("bye")
}
