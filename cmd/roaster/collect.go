package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/luki/roaster/internal/collector"
	"github.com/luki/roaster/internal/logging"
	"github.com/luki/roaster/internal/sensor"
	"github.com/luki/roaster/internal/store"
	"github.com/luki/roaster/internal/viewer"
)

func collectCmd(args []string) error {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (overrides collector.addr)")
	broker := fs.String("broker", "", "also consume MQTT from this broker")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Collector.Addr = *addr
	}
	if *broker != "" {
		cfg.Collector.Broker = *broker
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ds, err := store.New(cfg.DataDir)
	if err != nil {
		return err
	}
	defer ds.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := collector.New(ds, log)
	log.Info().Str("dir", ds.Dir()).Msg("storing batches")

	// A lost broker stops the HTTP side too.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	mqttErr := make(chan error, 1)
	if cfg.Collector.Broker != "" {
		go func() {
			err := c.ConsumeMQTT(ctx, cfg.Collector.Broker, cfg.Collector.Topic, nil)
			if err != nil {
				log.Error().Err(err).Msg("mqtt consumer stopped")
			}
			mqttErr <- err
			cancel()
		}()
	}

	if err := c.Serve(ctx, cfg.Collector.Addr); err != nil {
		return err
	}
	select {
	case err := <-mqttErr:
		return err
	default:
		return nil
	}
}

func viewCmd(args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	dir := fs.String("dir", "", "data directory (overrides data_dir)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *dir == "" {
		*dir = cfg.DataDir
	}
	return viewer.Run(*dir)
}

func probesCmd(args []string) error {
	fs := flag.NewFlagSet("probes", flag.ContinueOnError)
	root := fs.String("root", "/", "filesystem root to scan")
	if err := fs.Parse(args); err != nil {
		return err
	}
	probes := sensor.Discover(*root)
	if len(probes) == 0 {
		fmt.Println("no temperature probes found")
		return nil
	}
	for _, p := range probes {
		name := sensor.FriendlyName(p.Driver)
		if p.Label != "" {
			name += " (" + p.Label + ")"
		}
		if p.Err != nil {
			fmt.Fprintf(os.Stdout, "%-8s %-32s %-8s %s\n", p.Kind, name, "error", p.Path)
			continue
		}
		fmt.Fprintf(os.Stdout, "%-8s %-32s %6.1f°C %s\n", p.Kind, name, p.Temp, p.Path)
	}
	return nil
}
