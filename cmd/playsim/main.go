package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/lumiplay/internal/app"
	"github.com/coreman2200/lumiplay/internal/driver/fake"
	"github.com/coreman2200/lumiplay/internal/looper"
	"github.com/coreman2200/lumiplay/internal/playback"
	"github.com/coreman2200/lumiplay/internal/render"
	"github.com/coreman2200/lumiplay/internal/render/keyframe"
)

func main() {
	var (
		docPath     string
		speed       float64
		mode        string
		repeatCount int
		first, last int
		every       int
		drift       bool
		timeout     time.Duration
	)
	flag.StringVar(&docPath, "doc", "", "Path to a keyframe document (empty plays the built-in sample)")
	flag.Float64Var(&speed, "speed", 1, "Playback speed multiplier")
	flag.StringVar(&mode, "repeat-mode", "restart", "restart | reverse")
	flag.IntVar(&repeatCount, "repeat-count", 0, "Extra cycles after the first, -1 for infinite")
	flag.IntVar(&first, "first", 0, "First frame of the window")
	flag.IntVar(&last, "last", -1, "Last frame of the window, -1 for the document end")
	flag.IntVar(&every, "every", 1, "Log every n-th presented frame")
	flag.BoolVar(&drift, "drift", false, "Carry interval truncation over to later ticks")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Stop after this long (infinite runs)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"})

	doc := keyframe.Sample
	if docPath != "" {
		b, err := os.ReadFile(docPath)
		if err != nil {
			log.Fatal().Err(err).Msg("read document")
		}
		doc = b
	}
	rm, err := playback.ParseRepeatMode(mode)
	if err != nil {
		log.Fatal().Err(err).Msg("flags")
	}
	p := playback.DefaultParams()
	p.Speed = speed
	p.RepeatMode = rm
	p.RepeatCount = repeatCount
	p.FirstFrame, p.LastFrame = first, last

	rr, ok := render.Default().Get(keyframe.Name)
	if !ok {
		log.Fatal().Msg("keyframe renderer not registered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	loop := looper.New()
	sim := &fake.Driver{Log: log.Logger, Every: every}
	view := app.NewView(rr, sim, loop, log.Logger, app.ViewOptions{Params: p, DriftCompensation: drift})
	started := time.Now()
	view.SetListener(playback.ListenerFuncs{
		Start:  func() { log.Info().Msg("[Start]") },
		Repeat: func() { log.Info().Dur("t", time.Since(started)).Msg("[Repeat]") },
		End: func() {
			log.Info().Dur("t", time.Since(started)).Int("frames", sim.Count).Msg("[End]")
			cancel()
		},
	})
	if err := view.SetSource(doc); err != nil {
		log.Fatal().Err(err).Msg("source")
	}
	loop.Post(func() {
		if err := view.Attach(); err != nil {
			log.Error().Err(err).Msg("attach")
			cancel()
		}
	})

	_ = loop.Run(ctx)
	view.Detach()
	log.Info().Int("presented", sim.Count).Dur("elapsed", time.Since(started)).Msg("simulation complete")
}
