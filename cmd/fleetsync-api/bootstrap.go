package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dispatchly/fleetsync/config"
	"github.com/dispatchly/fleetsync/internal/bootstrap"
	"github.com/dispatchly/fleetsync/internal/broker/kafka"
	"github.com/dispatchly/fleetsync/internal/integrations/datahub"
	"github.com/dispatchly/fleetsync/internal/metrics"
	"github.com/dispatchly/fleetsync/internal/storage/pgsnap"
	"github.com/dispatchly/fleetsync/internal/storage/redissnap"
	"github.com/dispatchly/fleetsync/internal/store"
)

type apiApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   apiOpts
	stores *store.Manager
	closeDB func()
}

func mustBootstrapAPI() *apiApp {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.FleetSync.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	m := metrics.New("fleetsync")

	var (
		snaps   store.SnapshotStore
		closeDB func()
	)
	switch cfg.FleetSync.SnapshotBackend {
	case "postgres":
		sslMode := cfg.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
		st := mustOpenPostgresWithRetry(connString, 60*time.Second)
		snaps, closeDB = st, st.Close
	default:
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		snaps = redissnap.New(redisAddr)
	}

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)

	stores := store.NewManager(store.Options{
		Snapshots:     snaps,
		Publisher:     producer,
		Metrics:       m,
		Logger:        slog.Default(),
		KeyBase:       cfg.FleetSync.StateKeyBase,
		ChannelPrefix: cfg.FleetSync.EventChannelPrefix,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var loader *bootstrap.Loader
	if cfg.FleetSync.DataHubBaseURL != "" {
		hub := datahub.New(cfg.FleetSync.DataHubBaseURL, cfg.FleetSync.DataHubAPIKey)
		loader = bootstrap.NewLoader(hub, m, slog.Default())
	}

	// Каждый новый инстанс store: подписка на канал тенанта (своя consumer
	// group — каждый инстанс видит каждое событие) плюс remote bootstrap.
	stores.OnOpen(func(st *store.Store) {
		consumer := kafka.NewConsumer(brokers, st.Channel(), "fleetsync-api-"+st.InstanceID())
		go func() {
			defer func() { _ = consumer.Close() }()
			err := consumer.Consume(ctx, func(_key, value []byte) error {
				st.ApplyRemote(ctx, value)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("tenant consumer stopped", "channel", st.Channel(), "error", err.Error())
			}
		}()
		if loader != nil {
			go loader.Run(ctx, st)
		}
	})

	return &apiApp{
		ctx:     ctx,
		cancel:  cancel,
		opts:    apiOpts{httpAddr: httpAddr},
		stores:  stores,
		closeDB: closeDB,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgsnap.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgsnap.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *apiApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.stores != nil {
		a.stores.CloseAll()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *apiApp) Run() error {
	return runAPI(a.ctx, a.opts, a.stores)
}
