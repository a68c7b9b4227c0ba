package store

import (
	"context"
	"sync"
)

// Manager держит по одному инстансу store на тенанта. Инстансы создаются
// лениво и живут до Release/CloseAll: смена identity — это всегда другой
// инстанс с другим persistence-ключом, состояние тенантов не пересекается.
type Manager struct {
	opts   Options
	onOpen func(*Store)

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(opts Options) *Manager {
	return &Manager{
		opts:   opts,
		stores: make(map[string]*Store),
	}
}

// OnOpen регистрирует хук, вызываемый для каждого нового инстанса (подписка
// на канал тенанта, запуск bootstrap-загрузки).
func (m *Manager) OnOpen(fn func(*Store)) {
	m.onOpen = fn
}

// Get возвращает store тенанта, при первом обращении создавая его и
// поднимая сохранённый снапшот.
func (m *Manager) Get(ctx context.Context, tenant Tenant) *Store {
	m.mu.Lock()
	if s, ok := m.stores[tenant.Key()]; ok {
		m.mu.Unlock()
		return s
	}
	opts := m.opts
	opts.InstanceID = "" // каждый инстанс со своим id
	s := New(ctx, tenant, opts)
	m.stores[tenant.Key()] = s
	hook := m.onOpen
	m.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return s
}

// Peek возвращает уже открытый store, не создавая нового.
func (m *Manager) Peek(tenant Tenant) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[tenant.Key()]
	return s, ok
}

// Release закрывает и убирает инстанс тенанта (logout/switch).
func (m *Manager) Release(tenant Tenant) {
	m.mu.Lock()
	s, ok := m.stores[tenant.Key()]
	delete(m.stores, tenant.Key())
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// All — срез открытых инстансов (для фоновых обходов worker'а).
func (m *Manager) All() []*Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	return out
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	stores := m.stores
	m.stores = make(map[string]*Store)
	m.mu.Unlock()
	for _, s := range stores {
		s.Close()
	}
}
