package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"SharedBoard/internal/board"
	"SharedBoard/internal/capture"
	"SharedBoard/internal/config"
	"SharedBoard/internal/logging"
	sbnet "SharedBoard/internal/net"
	"SharedBoard/internal/sim"
	"SharedBoard/internal/state"
	"SharedBoard/internal/store"
	"SharedBoard/internal/surface"
	"SharedBoard/internal/ui"
)

const browseTimeout = 3 * time.Second

// usage: SharedBoard                        host a board
//
//	SharedBoard sharedboard://host:port  join a host
//	SharedBoard browse                   join the first host found on the LAN
func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args
	switch {
	case len(args) > 1 && sbnet.IsShareLink(args[1]):
		err = runClient(ctx, cfg, logger, args[1])
	case len(args) > 1 && args[1] == "browse":
		err = browseAndJoin(ctx, cfg, logger)
	default:
		err = runHost(ctx, cfg, logger)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("board stopped")
	}
}

func runHost(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Int("port", cfg.Network.Port).Msg("starting as host")

	log := state.NewMemoryLog()
	if cfg.Storage.Enabled {
		st, err := openStore(cfg.Storage.Path, log, logger)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	hub := sbnet.NewHub(log, logging.Component(logger, "hub"))
	defer hub.Close()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Network.Port)
		if err := hub.ListenAndServe(ctx, addr); err != nil {
			logger.Error().Err(err).Str("addr", addr).Msg("host server stopped")
		}
	}()

	if cfg.Network.Discovery {
		server, err := sbnet.Advertise(cfg.Network.Port, cfg.Network.Room)
		if err != nil {
			logger.Warn().Err(err).Msg("mdns advertise failed, share the link instead")
		} else {
			defer server.Shutdown()
		}
	}

	link := sbnet.ShareLink(sbnet.OutgoingIP(), cfg.Network.Port)
	logger.Info().Str("link", link).Msg("share this link")

	runBoard(ctx, cfg, logger, hub.Log().Site(state.NewSiteID()), "SharedBoard (host) "+cfg.Network.Room, link, nil)
	return nil
}

func openStore(path string, log *state.MemoryLog, logger zerolog.Logger) (*store.Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.Open(path, logging.Component(logger, "store"))
	if err != nil {
		return nil, err
	}
	n, err := st.Restore(log)
	if err != nil {
		st.Close()
		return nil, err
	}
	logger.Info().Int("strokes", n).Str("path", path).Msg("restored board")
	return st, nil
}

func browseAndJoin(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if !cfg.Network.Discovery {
		return errors.New("discovery is disabled in the config")
	}
	hosts, err := sbnet.Browse(browseTimeout)
	if err != nil {
		return err
	}
	for _, h := range hosts {
		if h.Room == cfg.Network.Room || cfg.Network.Room == "" {
			logger.Info().Str("host", h.Name).Str("addr", h.Addr).Msg("found host")
			return runClient(ctx, cfg, logger, sbnet.Scheme+h.Addr)
		}
	}
	return fmt.Errorf("no host for room %q on the local network", cfg.Network.Room)
}

func runClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger, link string) error {
	addr, err := sbnet.ParseShareLink(link)
	if err != nil {
		return err
	}
	logger.Info().Str("addr", addr).Msg("starting as client")

	replica := sbnet.NewReplica(sbnet.ReplicaConfig{URL: sbnet.WebsocketURL(addr)}, logging.Component(logger, "replica"))
	defer replica.Close()
	if err := replica.Connect(ctx); err != nil {
		return err
	}

	runBoard(ctx, cfg, logger, replica, "SharedBoard "+addr, addr, func(b *board.Board) {
		replica.OnReconnect(b.Reconnected)
	})
	return nil
}

// runBoard builds the site on top of log and blocks in the window.
func runBoard(ctx context.Context, cfg *config.Config, logger zerolog.Logger, log state.Log, title, link string, wire func(*board.Board)) {
	raster := surface.NewRaster(1024, 768)

	capCfg := capture.Config{
		BatchSize:   cfg.Drawing.BatchSize,
		MinDistance: cfg.Drawing.MinDistance,
		PenWidth:    cfg.Drawing.PenWidth,
		EraserWidth: cfg.Drawing.EraserWidth,
	}
	b := board.New(log, raster, board.Options{
		Capture:       capCfg,
		FrameInterval: cfg.Drawing.FrameInterval(),
		Smoothing:     cfg.Drawing.Smoothing,
		Color:         cfg.Drawing.DefaultColor,
	}, logger.With().Str("site", log.SiteID()).Logger())
	defer b.Close()
	if wire != nil {
		wire(b)
	}

	gen := sim.New(log, sim.Config{
		Interval: cfg.Sim.Interval(),
		Color:    "orange",
		Capture:  capCfg,
	}, logging.Component(logger, "sim"))
	defer gen.Stop()
	b.SetSimulator(gen)

	ui.RunApp(ctx, ui.AppOptions{
		Title:  title,
		Link:   link,
		Board:  b,
		Raster: raster,
		Logger: logging.Component(logger, "ui"),
	})
}
