package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luki/roaster/internal/config"
	"github.com/luki/roaster/internal/indicator"
	"github.com/luki/roaster/internal/logging"
	"github.com/luki/roaster/internal/monitor"
	"github.com/luki/roaster/internal/roast"
	"github.com/luki/roaster/internal/sensor"
	"github.com/luki/roaster/internal/transport"
)

// stopGrace is added to the flush timeout when waiting for the engine.
const stopGrace = 5 * time.Second

func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", "", "config file (default: roaster.yaml in ., ~/.roaster, /etc/roaster)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config.Load(*path)
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	headless := fs.Bool("headless", false, "log each tick instead of drawing the TUI")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *headless {
		cfg.Headless = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The TUI owns the terminal; send logs to a file unless one is set.
	if !cfg.Headless && cfg.Log.File == "" {
		cfg.Log.File = config.DefaultLogFile()
	}
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := uuid.NewString()
	log = log.With().Str("session", session).Logger()

	probe, err := sensor.Open(cfg.Sensor)
	if err != nil {
		return err
	}
	sender, err := transport.Open(cfg.Transport, session, log)
	if err != nil {
		return err
	}
	defer sender.Close()

	var inds []roast.Indicator
	if cfg.Indicator.LED != "" {
		led, err := indicator.NewLED("", cfg.Indicator.LED, log)
		if err != nil {
			log.Warn().Err(err).Msg("status led unavailable")
		} else {
			defer led.Close()
			inds = append(inds, led)
		}
	}

	deps := roast.Deps{Sensor: probe, Sender: sender}
	opts := []roast.Option{roast.WithLogger(log), roast.WithSessionID(session)}

	if cfg.Headless {
		deps.Display = monitor.NewLogDisplay(log)
		deps.Indicator = indicator.Multi(inds...)
		eng, err := roast.New(cfg.Engine.Roast(), deps, opts...)
		if err != nil {
			return err
		}
		if err := eng.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return stopEngine(eng, cfg, log)
	}

	var eng *roast.Engine
	info := monitor.Info{
		Session:   session,
		Probe:     probeLabel(cfg.Sensor),
		Transport: cfg.Transport.Kind,
	}
	p := tea.NewProgram(
		monitor.New(info, func(s roast.Stage) { eng.Mark(s) }),
		tea.WithAltScreen(),
	)
	sink := monitor.NewSink(p)
	deps.Display = sink
	deps.Indicator = indicator.Multi(append(inds, sink)...)

	eng, err = roast.New(cfg.Engine.Roast(), deps, opts...)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}

	go p.Send(monitor.StartedMsg(eng.StartTime()))
	go func() {
		<-ctx.Done()
		p.Send(monitor.StoppingMsg{})
		p.Quit()
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrInterrupted) {
		log.Error().Err(err).Msg("display exited")
	}
	return stopEngine(eng, cfg, log)
}

func stopEngine(eng *roast.Engine, cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Engine.FlushTimeout+stopGrace)
	defer cancel()
	if err := eng.Stop(ctx); err != nil {
		return err
	}
	st := eng.Stats()
	if st.Dropped > 0 {
		return fmt.Errorf("%d records were not delivered", st.Dropped)
	}
	if !cfg.Headless {
		fmt.Fprintf(os.Stderr, "roast %s: %d ticks, %d batches sent\n", eng.SessionID(), st.Ticks, st.BatchesSent)
	}
	return nil
}

func probeLabel(c sensor.Config) string {
	if c.Path == "" {
		return c.Kind
	}
	return c.Kind + ":" + c.Path
}
