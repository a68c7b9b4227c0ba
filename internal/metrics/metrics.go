package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счётчики ядра. Указатель может быть nil: инструментирование
// в таком случае выключено.
type Metrics struct {
	Mutations          *prometheus.CounterVec
	BroadcastApplied   prometheus.Counter
	BroadcastSkipped   prometheus.Counter
	PublishErrors      prometheus.Counter
	SnapshotSaveErrors prometheus.Counter
	SnapshotLoadErrors prometheus.Counter
	BootstrapFailures  *prometheus.CounterVec
	RemindersPublished prometheus.Counter
}

// New регистрирует метрики в реестре по умолчанию.
func New(namespace string) *Metrics {
	return NewWith(prometheus.DefaultRegisterer, namespace)
}

// NewWith регистрирует метрики в произвольном реестре (тесты).
func NewWith(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Applied local mutations by entity and operation",
		}, []string{"entity", "op"}),
		BroadcastApplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_applied_total",
			Help:      "Remote change events applied to local state",
		}),
		BroadcastSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_skipped_total",
			Help:      "Remote change events skipped as own echo",
		}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed change event publishes",
		}),
		SnapshotSaveErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_save_errors_total",
			Help:      "Swallowed snapshot save failures",
		}),
		SnapshotLoadErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_load_errors_total",
			Help:      "Swallowed snapshot load failures",
		}),
		BootstrapFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_failures_total",
			Help:      "Remote bootstrap failures by domain",
		}, []string{"domain"}),
		RemindersPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_published_total",
			Help:      "Invoice reminder messages published",
		}),
	}
}
