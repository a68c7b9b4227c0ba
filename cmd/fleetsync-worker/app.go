package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dispatchly/fleetsync/config"
	"github.com/dispatchly/fleetsync/internal/broker/kafka"
	"github.com/dispatchly/fleetsync/internal/cache/rediscache"
	"github.com/dispatchly/fleetsync/internal/metrics"
	"github.com/dispatchly/fleetsync/internal/services/reminders"
	"github.com/dispatchly/fleetsync/internal/storage/pgsnap"
	"github.com/dispatchly/fleetsync/internal/storage/redissnap"
	"github.com/dispatchly/fleetsync/internal/store"
)

// eventProducer публикует и события изменений (канал тенанта), и сообщения
// о напоминаниях (топик worker'а). kafka.Producer покрывает оба контракта.
type eventProducer interface {
	store.Publisher
	reminders.Producer
}

// snapshotKeyStore — адаптер снапшотов, умеющий перечислять ключи: worker
// обнаруживает тенантов по сохранённому состоянию.
type snapshotKeyStore interface {
	store.SnapshotStore
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type workerFactories struct {
	newSnapshots   func(cfg *config.Config) (snaps snapshotKeyStore, closeFn func(), err error)
	newProducer    func(cfg *config.Config) eventProducer
	newRateLimiter func(cfg *config.Config) reminders.RateLimiter
	newMetrics     func(cfg *config.Config) *metrics.Metrics
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newSnapshots: func(cfg *config.Config) (snapshotKeyStore, func(), error) {
			if cfg.FleetSync.SnapshotBackend == "postgres" {
				sslMode := cfg.Database.SSLMode
				if sslMode == "" {
					sslMode = "disable"
				}
				connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
					cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
				st, err := pgsnap.New(connString)
				if err != nil {
					return nil, nil, err
				}
				return st, st.Close, nil
			}
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return redissnap.New(redisAddr), nil, nil
		},
		newProducer: func(cfg *config.Config) eventProducer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) reminders.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newMetrics: func(cfg *config.Config) *metrics.Metrics {
			return metrics.New("fleetsync_worker")
		},
	}
}

func RunWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	topic := cfg.Kafka.ReminderTopicName
	if topic == "" {
		topic = "fleetsync.reminders"
	}
	interval := time.Duration(cfg.FleetSync.WorkerIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	rlPerHour := int64(cfg.FleetSync.WorkerReminderLimitPerHour)
	if rlPerHour <= 0 {
		rlPerHour = 3
	}
	keyBase := cfg.FleetSync.StateKeyBase
	if keyBase == "" {
		keyBase = store.DefaultKeyBase
	}

	snaps, closeFn, err := f.newSnapshots(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	rl := f.newRateLimiter(cfg)
	var m *metrics.Metrics
	if f.newMetrics != nil {
		m = f.newMetrics(cfg)
	}

	stores := store.NewManager(store.Options{
		Snapshots:     snaps,
		Publisher:     producer,
		Metrics:       m,
		Logger:        slog.Default(),
		KeyBase:       keyBase,
		ChannelPrefix: cfg.FleetSync.EventChannelPrefix,
	})
	defer stores.CloseAll()

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	stores.OnOpen(func(st *store.Store) {
		consumer := kafka.NewConsumer(brokers, st.Channel(), "fleetsync-worker-"+st.InstanceID())
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
	})

	w := reminders.New(stores, producer, rl, topic).
		WithSettings(interval, rlPerHour).
		WithPlanner(reminders.PlannerConfig{
			Delay1:       time.Duration(cfg.FleetSync.WorkerReminderDelay1Seconds) * time.Second,
			Delay2:       time.Duration(cfg.FleetSync.WorkerReminderDelay2Seconds) * time.Second,
			Delay3:       time.Duration(cfg.FleetSync.WorkerReminderDelay3Seconds) * time.Second,
			MaxReminders: cfg.FleetSync.WorkerReminderMaxReminders,
		}).
		WithMetrics(m)

	// Тенанты с сохранённым состоянием подхватываются по ключам снапшотов:
	// worker не знает о логинах, он обходит то, что когда-либо персистилось.
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		discoverTenants(ctx, stores, snaps, keyBase)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				discoverTenants(ctx, stores, snaps, keyBase)
			}
		}
	}()

	if cfg.FleetSync.WorkerHTTPAddr != "" {
		go func() {
			err := runWorkerHTTPServer(ctx, workerHTTPOpts{
				httpAddr: cfg.FleetSync.WorkerHTTPAddr,
				worker:   w,
				cfg:      cfg,
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("worker http server stopped", "error", err.Error())
			}
		}()
	}

	return w.Run(ctx)
}

func discoverTenants(ctx context.Context, stores *store.Manager, snaps snapshotKeyStore, keyBase string) {
	keys, err := snaps.Keys(ctx, keyBase)
	if err != nil {
		slog.Warn("list snapshot keys", "error", err.Error())
		return
	}
	for _, k := range keys {
		t, ok := store.ParseTenantKey(keyBase, k)
		if !ok {
			continue
		}
		stores.Get(ctx, t)
	}
}
