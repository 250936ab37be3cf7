package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/confloader"
	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/infra/tlsroots"
	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/server/httpserver"
	"github.com/yndnr/respkv/internal/server/localserver"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

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
		fmt.Printf("respkv-server %s\n", buildinfo.String())
		return nil
	}

	cfg, loader, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting respkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)

	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	registry := metric.NewRegistry()
	store := memory.New(
		memory.WithLogger(log.Slog()),
		memory.WithExpireHook(registry.ObserveExpired),
	)
	registry.MustRegister(metric.NewCollector(store))

	redisLn, err := net.Listen("tcp", cfg.Server.Redis.Addr)
	if err != nil {
		store.Close()
		return fmt.Errorf("listen %s: %w", cfg.Server.Redis.Addr, err)
	}

	var ready atomic.Bool
	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout)

	// Hooks run in reverse order: RESP clients drain first, the store
	// closes last.
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("closing store")
		store.Close()
		return nil
	})

	redisCfg := redisConfig(cfg)
	if tlsCfg := cfg.Server.Redis.TLS; tlsCfg.Enabled() {
		certs, err := tlsroots.NewWatcher(tlsCfg.CertFile, tlsCfg.KeyFile,
			tlsroots.WithLogger(log.Slog()))
		if err != nil {
			redisLn.Close()
			store.Close()
			return fmt.Errorf("load tls key pair: %w", err)
		}
		certs.StartAsync()
		shutdownHandler.OnShutdown(func(context.Context) error {
			return certs.Stop()
		})
		redisCfg.TLS = tlsroots.ServerConfig(certs)
	}
	redisSrv := redisserver.New(redisCfg, store,
		redisserver.WithLogger(log),
		redisserver.WithMetrics(registry),
	)

	if addr := cfg.Server.Admin.Addr; addr != "" {
		adminLn, err := net.Listen("tcp", addr)
		if err != nil {
			redisLn.Close()
			store.Close()
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		admin := httpserver.New(addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Metrics:   registry,
			Ready:     func() bool { return ready.Load() && redisSrv.Addr() != nil },
			AllowList: cfg.Server.Admin.Allow,
			Logger:    log.With("component", "admin"),
		}))
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down admin server")
			return admin.Shutdown(ctx)
		})
		go func() {
			log.Info("admin server listening", "address", adminLn.Addr().String())
			if err := admin.Serve(adminLn); err != nil {
				log.Error("admin server error", "error", err)
			}
		}()
	}

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		ready.Store(false)
		log.Info("draining redis connections", "connections", redisSrv.ActiveConnections())
		return redisSrv.Shutdown(ctx)
	})

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, loader, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	if path := cfg.Server.Redis.UnixSocket; path != "" {
		unixLn, err := localserver.Listen(path, localserver.DefaultPerm)
		if err != nil {
			log.Error("unix socket disabled", "path", path, "error", err)
		} else {
			// Local clients are trusted: no TLS, no per-IP rate limit.
			localCfg := redisConfig(cfg)
			localCfg.RateLimit = 0
			localSrv := redisserver.New(localCfg, store,
				redisserver.WithLogger(log.With("listener", "unix")),
				redisserver.WithMetrics(registry),
			)
			shutdownHandler.OnShutdown(localSrv.Shutdown)
			go func() {
				if err := localSrv.Run(ctx, unixLn); err != nil {
					log.Error("unix socket server error", "error", err)
				}
			}()
		}
	}

	go func() {
		ready.Store(true)
		if err := redisSrv.Run(ctx, redisLn); err != nil {
			log.Error("redis server error", "error", err)
			stop()
		}
	}()

	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file and environment.
func loadConfig(configFile string) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, nil, err
	}

	return cfg, loader, nil
}

// initLogger creates the structured logger and installs it as default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      os.Stdout,
		AddSource:   cfg.Log.AddSource,
		MaxValueLen: cfg.Log.MaxValueLen,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}

func redisConfig(cfg *config.ServerConfig) *redisserver.Config {
	r := cfg.Server.Redis
	return &redisserver.Config{
		Addr:           r.Addr,
		ReadTimeout:    r.ReadTimeout,
		WriteTimeout:   r.WriteTimeout,
		IdleTimeout:    r.IdleTimeout,
		RateLimit:      r.RateLimit,
		RateBurst:      r.RateBurst,
		MaxConnections: r.MaxConnections,
		Decoder:        cfg.Protocol.Decoder(),
	}
}

// watchConfig reloads the config file on change. Only the log level is
// applied live; other settings need a restart.
func watchConfig(path string, loader *confloader.Loader, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		if stopErr := watcher.Stop(); stopErr != nil {
			log.Warn("config watcher stop failed", "error", stopErr)
		}
		return nil, err
	}

	watcher.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Warn("reloaded config is invalid, keeping current", "error", err)
			return
		}
		if err := log.SetLevel(next.Log.Level); err != nil {
			log.Warn("reloaded log level rejected", "error", err)
			return
		}
		log.Info("config reloaded", "log_level", log.Level())
	})
	watcher.StartAsync()
	return watcher, nil
}
