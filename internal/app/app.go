package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tidemark/tidemark/internal/backends"
	"github.com/tidemark/tidemark/internal/config"
	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/httpserver"
	"github.com/tidemark/tidemark/internal/httpserver/deps"
	"github.com/tidemark/tidemark/internal/logger"
	"github.com/tidemark/tidemark/internal/porter"
	"github.com/tidemark/tidemark/internal/redis"
	"github.com/tidemark/tidemark/internal/remote/blob"
	"github.com/tidemark/tidemark/internal/remote/object"
	"github.com/tidemark/tidemark/internal/remote/webdav"
	"github.com/tidemark/tidemark/internal/retry"
	"github.com/tidemark/tidemark/internal/schema"
	"github.com/tidemark/tidemark/internal/store/bolt"
	"github.com/tidemark/tidemark/internal/syncer"
	"github.com/tidemark/tidemark/internal/version"
)

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	store        *bolt.Store
	orchestrator *syncer.Orchestrator
	redisClients []*goredis.Client
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		loggerClient.Errorf("Failed to create data dir %s: %v", cfg.DataDir, err)
		os.Exit(1)
	}
	store, err := bolt.Open(filepath.Join(cfg.DataDir, "tidemark.db"), loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open local store: %v", err)
		os.Exit(1)
	}

	policy := retry.Policy{
		MaxAttempts: uint64(cfg.RetryAttempts),
		Base:        cfg.RetryBase,
	}

	// Build remote backends from backends.yaml, if configured.
	var (
		syncBackends []syncer.Backend
		redisClients []*goredis.Client
	)
	if cfg.BackendsFile != "" {
		defs, err := backends.NewLoader(cfg.BackendsFile).Load()
		if err != nil {
			loggerClient.Errorf("Failed to load backends file: %v", err)
			os.Exit(1)
		}
		for _, def := range defs {
			switch def.Type {
			case backends.TypeBlob:
				client, err := webdav.New(def.URL, def.Username, def.Password)
				if err != nil {
					loggerClient.Errorf("Backend %s: invalid url: %v", def.Name, err)
					os.Exit(1)
				}
				adapter := blob.New(def.Name, client, policy, loggerClient)
				syncBackends = append(syncBackends,
					syncer.NewBlobBackend(adapter, schema.WebDAV(), nil))

			case backends.TypeObject:
				client, err := redis.Connect(context.Background(), redis.ConnectOptions{
					Addr:           def.Addr,
					User:           cfg.RedisUser,
					Password:       cfg.RedisPassword,
					DB:             def.DB,
					DialTimeout:    cfg.RedisDT,
					ReadTimeout:    cfg.RedisRT,
					WriteTimeout:   cfg.RedisWT,
					PoolSize:       cfg.RedisPoolSize,
					ConnectTimeout: cfg.RedisConnectTimeout,
					RetryInterval:  cfg.RedisRetryInterval,
					MaxWait:        cfg.RedisMaxWait,
					PingTimeout:    cfg.RedisPingTimeout,
				}, loggerClient)
				if err != nil {
					loggerClient.Errorf("Backend %s: %v", def.Name, err)
					os.Exit(1)
				}
				redisClients = append(redisClients, client)
				adapter := object.New(def.Name, client)
				syncBackends = append(syncBackends,
					syncer.NewObjectBackend(adapter, schema.Identity(), policy))
			}
			loggerClient.Info("backend configured",
				logger.String("name", def.Name),
				logger.String("type", string(def.Type)))
		}
	} else {
		loggerClient.Info("no backends file configured, running local-only")
	}

	var orchestrator *syncer.Orchestrator
	if len(syncBackends) > 0 {
		orchestrator = syncer.New(store, syncBackends, syncer.Options{
			Interval: cfg.SyncInterval,
			Debounce: cfg.SyncDebounce,
			Cooldown: cfg.SyncCooldown,
		}, loggerClient)

		// Local edits schedule a debounced sync pass.
		o := orchestrator
		store.SetOnChange(func(domain.Collection) { o.NotifyChange() })
	}

	porterClient := porter.New(store, loggerClient)

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		Store:        store,
		Orchestrator: orchestrator,
		Porter:       porterClient,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       server,
		store:        store,
		orchestrator: orchestrator,
		redisClients: redisClients,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Tidemark v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Tidemark %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.orchestrator != nil {
		go a.orchestrator.Start(ctx)
		a.logger.Info("sync orchestrator started",
			logger.Duration("interval", a.cfg.SyncInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.orchestrator != nil {
		a.orchestrator.Dispose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	for _, client := range a.redisClients {
		if err := client.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		}
	}

	if err := a.store.Close(); err != nil {
		a.logger.Warnf("failed to close local store: %v", err)
	}

	a.logger.Info("✅ Tidemark stopped cleanly")
	return nil
}
