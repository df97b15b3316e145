// Package main provides the entry point for meshbbs-server.
//
// meshbbs-server answers direct messages from a mesh radio network with a
// menu-driven bulletin board and mail system, and replicates bulletins and
// mail to peer BBS nodes over the same radio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yndnr/meshbbs-go/internal/infra/buildinfo"
	"github.com/yndnr/meshbbs-go/internal/infra/confloader"
	"github.com/yndnr/meshbbs-go/internal/infra/shutdown"
	"github.com/yndnr/meshbbs-go/internal/server/config"
	"github.com/yndnr/meshbbs-go/internal/server/httpserver"
	"github.com/yndnr/meshbbs-go/internal/server/meshserver"
	"github.com/yndnr/meshbbs-go/internal/telemetry/logger"
	"github.com/yndnr/meshbbs-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("meshbbs-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Setup(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting meshbbs-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	metrics := metric.NewRegistry()

	repo, err := meshserver.OpenRepository(&cfg.Storage, log.With("component", "storage"), metrics.Registerer())
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	radio, err := meshserver.OpenTransport(&cfg.Transport, cfg.Node.Name, log)
	if err != nil {
		_ = repo.Close()
		return fmt.Errorf("init transport: %w", err)
	}

	mesh, err := meshserver.New(cfg, meshserver.Deps{
		Transport:  radio,
		Repository: repo,
		Metrics:    metrics,
		Logger:     log,
	})
	if err != nil {
		_ = radio.Close()
		_ = repo.Close()
		return fmt.Errorf("init mesh server: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout)

	// Hooks run in reverse order: watcher, http, then the mesh server.
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down mesh server")
		return mesh.Stop(ctx)
	})

	if err := mesh.Start(context.Background()); err != nil {
		return fmt.Errorf("start mesh server: %w", err)
	}

	if cfg.HTTP.Addr != "" {
		httpServer := httpserver.New(cfg.HTTP.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Version:        info.Version,
			Status:         func() any { return mesh.Status() },
			Metrics:        metrics.Handler(),
			Logger:         log.With("component", "http"),
			AdminAllowList: cfg.HTTP.AdminAllowList,
			AdminRateLimit: httpserver.DefaultAdminRateLimit,
		}))
		if err := httpServer.Start(log); err != nil {
			shutdownHandler.Trigger()
			_ = shutdownHandler.Wait()
			return fmt.Errorf("start http server: %w", err)
		}
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down HTTP server")
			return httpServer.Shutdown(ctx)
		})
	}

	reload := func() {
		next, err := config.Load(*configFile)
		if err != nil {
			log.Error("configuration reload rejected", "error", err)
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Warn("log level unchanged", "error", err)
		}
		mesh.Reload(next)
	}
	shutdownHandler.OnReload(reload)

	if *configFile != "" {
		watcher, err := confloader.WatchFile(*configFile, reload,
			confloader.WithWatcherLogger(log.With("component", "confwatch")))
		if err != nil {
			log.Warn("configuration watcher unavailable", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(context.Context) error {
				return watcher.Close()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}
