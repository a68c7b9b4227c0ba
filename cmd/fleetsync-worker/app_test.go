package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dispatchly/fleetsync/config"
	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/metrics"
	"github.com/dispatchly/fleetsync/internal/models"
	"github.com/dispatchly/fleetsync/internal/services/reminders"
	"github.com/dispatchly/fleetsync/internal/store"
)

type memSnapshots struct {
	data map[string]*models.Snapshot
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{data: make(map[string]*models.Snapshot)}
}

func (m *memSnapshots) Load(ctx context.Context, key string) (*models.Snapshot, bool, error) {
	s, ok := m.data[key]
	return s, ok, nil
}

func (m *memSnapshots) Save(ctx context.Context, key string, snap *models.Snapshot) error {
	m.data[key] = snap
	return nil
}

func (m *memSnapshots) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

type noopProducer struct{}

func (noopProducer) Publish(ctx context.Context, topic string, key, value []byte) error { return nil }
func (noopProducer) PublishChange(ctx context.Context, channel string, ev messages.ChangeEvent) error {
	return nil
}

func TestRunWorker_ContextCanceled(t *testing.T) {
	calledClose := false
	f := workerFactories{
		newSnapshots: func(cfg *config.Config) (snapshotKeyStore, func(), error) {
			return newMemSnapshots(), func() { calledClose = true }, nil
		},
		newProducer:    func(cfg *config.Config) eventProducer { return nil },
		newRateLimiter: func(cfg *config.Config) reminders.RateLimiter { return nil },
		newMetrics:     func(cfg *config.Config) *metrics.Metrics { return nil },
	}

	cfg := &config.Config{
		Kafka:     config.KafkaConfig{ReminderTopicName: "t"},
		FleetSync: config.FleetSyncConfig{WorkerIntervalSeconds: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunWorker(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}

func TestDiscoverTenants_OpensStoresFromKeys(t *testing.T) {
	snaps := newMemSnapshots()
	snaps.data[store.DefaultKeyBase+":org-1:u-1"] = &models.Snapshot{}
	snaps.data[store.DefaultKeyBase+":org-2:u-9"] = &models.Snapshot{}
	snaps.data["unrelated:key"] = &models.Snapshot{}

	stores := store.NewManager(store.Options{Snapshots: snaps})
	t.Cleanup(stores.CloseAll)

	discoverTenants(context.Background(), stores, snaps, store.DefaultKeyBase)
	require.Len(t, stores.All(), 2)

	// повторное обнаружение не плодит новых инстансов
	discoverTenants(context.Background(), stores, snaps, store.DefaultKeyBase)
	require.Len(t, stores.All(), 2)

	_, ok := stores.Peek(store.Tenant{OrgID: "org-1", UserID: "u-1"})
	require.True(t, ok)
}

func TestWorkerHTTPServer_StatsAndTrigger(t *testing.T) {
	stores := store.NewManager(store.Options{})
	t.Cleanup(stores.CloseAll)
	w := reminders.New(stores, noopProducer{}, nil, "t")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(addr string) { addrCh <- addr },
			worker:   w,
			cfg:      &config.Config{},
		})
	}()

	addr := <-addrCh

	resp, err := http.Post("http://"+addr+"/trigger", "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), `"triggered":true`)

	resp, err = http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats reminders.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.NotNil(t, stats.LastTriggerAt)

	cancel()
	select {
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting worker http server to stop")
	case <-errCh:
	}
}
