package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/metrics"
	"github.com/dispatchly/fleetsync/internal/models"
)

const (
	DefaultKeyBase       = "fleetsync:state"
	DefaultChannelPrefix = "fleetsync:events"
)

// SnapshotStore — адаптер персистентности: один JSON-снапшот на ключ.
// Ошибки адаптера ядро глотает: in-memory состояние всегда авторитетно.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (*models.Snapshot, bool, error)
	Save(ctx context.Context, key string, snap *models.Snapshot) error
}

// Publisher — транспорт событий изменений между инстансами. nil-публишер
// переводит store в одноинстансный режим без ошибок.
type Publisher interface {
	PublishChange(ctx context.Context, channel string, ev messages.ChangeEvent) error
}

// Options — зависимости и настройки инстанса. Все поля опциональны:
// нулевое значение даёт in-memory store без синхронизации.
type Options struct {
	Snapshots     SnapshotStore
	Publisher     Publisher
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	Actor         *models.AuditActor
	KeyBase       string
	ChannelPrefix string

	// Для тестов: фиксированный instanceID, часы и генератор id для пустой
	// коллекции.
	InstanceID string
	Clock      func() time.Time
	Rand       func() uint64
}

// BootstrapStatus — результат remote bootstrap'а, отражается в UI как
// нефатальный баннер. Домены загружаются и падают независимо.
type BootstrapStatus struct {
	FleetLoaded bool       `json:"fleet_loaded"`
	FleetError  string     `json:"fleet_error,omitempty"`
	CRMLoaded   bool       `json:"crm_loaded"`
	CRMError    string     `json:"crm_error,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Store — состояние одного тенанта: коллекции сущностей, журнал аудита,
// история статусов. Один инстанс на (тенант, процесс); инстансы одного
// тенанта синхронизируются через канал изменений.
type Store struct {
	tenant     Tenant
	instanceID string
	channel    string
	persistKey string

	snaps   SnapshotStore
	pub     Publisher
	metrics *metrics.Metrics
	log     *slog.Logger
	actor   *models.AuditActor
	clock   func() time.Time
	randID  func() uint64

	mu        sync.Mutex
	state     models.Snapshot
	bootState BootstrapStatus
	closed    bool
}

// New создаёт store тенанта и синхронно поднимает сохранённый снапшот.
// Падение загрузки (нет данных, битый JSON, недоступный бэкенд) — не ошибка:
// стартуем с чистых дефолтов.
func New(ctx context.Context, tenant Tenant, opts Options) *Store {
	s := &Store{
		tenant:     tenant,
		instanceID: opts.InstanceID,
		snaps:      opts.Snapshots,
		pub:        opts.Publisher,
		metrics:    opts.Metrics,
		log:        opts.Logger,
		actor:      opts.Actor,
		clock:      opts.Clock,
		randID:     opts.Rand,
	}
	if s.instanceID == "" {
		s.instanceID = uuid.NewString()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	if s.randID == nil {
		s.randID = func() uint64 { return uint64(rand.Int63n(1_000_000) + 1) }
	}

	keyBase := opts.KeyBase
	if keyBase == "" {
		keyBase = DefaultKeyBase
	}
	prefix := opts.ChannelPrefix
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	s.persistKey = tenant.PersistenceKey(keyBase)
	s.channel = tenant.Channel(prefix)

	s.load(ctx)
	return s
}

func (s *Store) Tenant() Tenant      { return s.tenant }
func (s *Store) InstanceID() string  { return s.instanceID }
func (s *Store) Channel() string     { return s.channel }
func (s *Store) PersistKey() string  { return s.persistKey }

// Close помечает инстанс завершённым. Дальнейшие мутации превращаются в
// no-op: результат опоздавших операций (bootstrap после смены тенанта)
// применён не будет.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Store) load(ctx context.Context) {
	if s.snaps == nil || s.persistKey == "" {
		return
	}
	snap, ok, err := s.snaps.Load(ctx, s.persistKey)
	if err != nil {
		s.log.Warn("snapshot load failed, starting from defaults", "key", s.persistKey, "err", err)
		if s.metrics != nil {
			s.metrics.SnapshotLoadErrors.Inc()
		}
		return
	}
	if !ok || snap == nil {
		return
	}
	s.mu.Lock()
	s.state = *snap
	s.mu.Unlock()
}

// persist пишет полный снапшот. Лучшие усилия: ошибка логируется и глотается,
// in-memory состояние остаётся авторитетным.
func (s *Store) persist(ctx context.Context, snap models.Snapshot) {
	if s.snaps == nil || s.persistKey == "" {
		return
	}
	snap.SavedAt = s.clock()
	if err := s.snaps.Save(ctx, s.persistKey, &snap); err != nil {
		s.log.Warn("snapshot save failed", "key", s.persistKey, "err", err)
		if s.metrics != nil {
			s.metrics.SnapshotSaveErrors.Inc()
		}
	}
}

// publish рассылает событие остальным инстансам. Ошибка транспорта не
// фатальна: локальная мутация уже применена.
func (s *Store) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.pub == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("marshal change payload failed", "type", eventType, "err", err)
		return
	}
	ev := messages.ChangeEvent{
		Source:  s.instanceID,
		Type:    eventType,
		Payload: raw,
	}
	if err := s.pub.PublishChange(ctx, s.channel, ev); err != nil {
		s.log.Warn("publish change failed", "type", eventType, "err", err)
		if s.metrics != nil {
			s.metrics.PublishErrors.Inc()
		}
	}
}

func (s *Store) countMutation(entity, op string) {
	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(entity, op).Inc()
	}
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.state)
}

// SetBootstrapStatus фиксирует результат remote bootstrap'а.
func (s *Store) SetBootstrapStatus(st BootstrapStatus) {
	s.mu.Lock()
	s.bootState = st
	s.mu.Unlock()
}

func (s *Store) BootstrapStatus() BootstrapStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootState
}

// SeedFleet перезаписывает fleet-коллекции данными remote bootstrap'а.
// Vehicles замещаются целиком, топливные расходы замещают только категорию
// "fuel". Без broadcast'а: каждый инстанс делает собственный bootstrap.
func (s *Store) SeedFleet(ctx context.Context, vehicles []models.Vehicle, fuel []models.Expense) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Vehicles = vehicles
	kept := make([]models.Expense, 0, len(s.state.Expenses)+len(fuel))
	kept = append(kept, fuel...)
	for _, e := range s.state.Expenses {
		if e.Category != "fuel" {
			kept = append(kept, e)
		}
	}
	s.state.Expenses = kept
	snap := s.state
	s.mu.Unlock()
	s.persist(ctx, snap)
}

// SeedCRM перезаписывает CRM-коллекции данными remote bootstrap'а.
func (s *Store) SeedCRM(ctx context.Context, leads []models.Lead, customers []models.Customer) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Leads = leads
	s.state.Customers = customers
	snap := s.state
	s.mu.Unlock()
	s.persist(ctx, snap)
}

func cloneSnapshot(src models.Snapshot) models.Snapshot {
	// Слайсы копируются по верхнему уровню. Записи — значения, вложенная
	// история append-only и никогда не мутируется на месте, поэтому общий
	// backing array безопасен.
	out := src
	out.Bookings = append([]models.Booking(nil), src.Bookings...)
	out.DeliveryProofs = append([]models.DeliveryProof(nil), src.DeliveryProofs...)
	out.Invoices = append([]models.Invoice(nil), src.Invoices...)
	out.Expenses = append([]models.Expense(nil), src.Expenses...)
	out.Leads = append([]models.Lead(nil), src.Leads...)
	out.Opportunities = append([]models.Opportunity(nil), src.Opportunities...)
	out.LeadActivities = append([]models.LeadActivity(nil), src.LeadActivities...)
	out.OpportunityActivities = append([]models.OpportunityActivity(nil), src.OpportunityActivities...)
	out.Customers = append([]models.Customer(nil), src.Customers...)
	out.Vehicles = append([]models.Vehicle(nil), src.Vehicles...)
	out.Maintenance = append([]models.VehicleMaintenance(nil), src.Maintenance...)
	out.Drivers = append([]models.Driver(nil), src.Drivers...)
	out.Users = append([]models.User(nil), src.Users...)
	out.AuditLog = append([]models.AuditEvent(nil), src.AuditLog...)
	return out
}
