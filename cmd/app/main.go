package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"coin_tracker/internal/app"
	"coin_tracker/internal/ui/tui"
	"coin_tracker/internal/ui/web"

	_ "net/http/pprof" // For pprof profiling
)

var opts struct {
	Config string `long:"config" env:"COINTRACKER_CONFIG" description:"path to the YAML config" default:"configs/config.yaml"`
	Mode   string `long:"mode" env:"COINTRACKER_MODE" description:"front-end to run" choice:"tui" choice:"web" default:"tui"`
	Addr   string `long:"addr" description:"listen address for web mode (overrides web.addr)"`
	Pprof  string `long:"pprof" description:"enable pprof on this address, e.g. localhost:6060"`
}

func main() {
	if _, err := flags.ParseArgs(&opts, os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(opts.Config, opts.Mode == "tui"); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrapping failed: %v\n", err)
		os.Exit(1)
	}
	defer bootstrap.Close()

	// 2. Pprof Server (for performance profiling)
	if opts.Pprof != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", opts.Pprof))
			if err := http.ListenAndServe(opts.Pprof, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch opts.Mode {
	case "web":
		err = runWeb(ctx, bootstrap)
	default:
		err = runTUI(ctx, bootstrap)
	}
	if err != nil {
		slog.Error("❌ Exited with error", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.Info("👋 Shut down gracefully")
}

func runTUI(ctx context.Context, b *app.Bootstrap) error {
	cfg := b.Config
	return tui.Run(ctx, tui.Options{
		Feed:         b.Feed,
		Formatter:    b.Formatter,
		Prefs:        b.Storage,
		PageSize:     cfg.UI.PageSize,
		Theme:        b.Theme,
		Owner:        cfg.App.Owner,
		RefreshEvery: b.RefreshInterval(),
	})
}

func runWeb(ctx context.Context, b *app.Bootstrap) error {
	cfg := b.Config
	addr := cfg.Web.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	// Fetch on start, then poll if configured
	go b.Feed.Run(ctx, b.RefreshInterval())

	server := web.NewServer(web.Options{
		Feed:           b.Feed,
		Formatter:      b.Formatter,
		Prefs:          b.Storage,
		Icons:          b.Downloader,
		Metrics:        b.Metrics,
		PageSize:       cfg.UI.PageSize,
		Theme:          b.Theme,
		Owner:          cfg.App.Owner,
		AllowedOrigins: cfg.Web.AllowedOrigins,
	})
	return server.ListenAndServe(ctx, addr)
}
