package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/models"
)

// addAuditLocked — низкоуровневый append в журнал: всегда штампует at=now,
// кладёт запись в голову и обрезает журнал по границе. Вызывается под s.mu;
// публикацию события делает вызывающий после разблокировки.
func (s *Store) addAuditLocked(action string, entity models.AuditEntityRef, meta map[string]interface{}) models.AuditEvent {
	ev := models.AuditEvent{
		ID:     uuid.NewString(),
		At:     s.clock(),
		Actor:  s.actor,
		Action: action,
		Entity: entity,
		Meta:   meta,
	}
	s.state.AuditLog = truncateAudit(insertHead(s.state.AuditLog, ev))
	return ev
}

// LogAuditEvent — общий вход для действий уровня вызывающего кода (импорты,
// инструменты ассистента). Пустые id/at/actor дозаполняются.
func (s *Store) LogAuditEvent(ctx context.Context, ev models.AuditEvent) models.AuditEvent {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ev
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = s.clock()
	}
	if ev.Actor == nil {
		ev.Actor = s.actor
	}
	s.state.AuditLog = truncateAudit(insertHead(s.state.AuditLog, ev))
	snap := s.state
	s.mu.Unlock()

	s.countMutation("audit", "append")
	s.publish(ctx, messages.TypeAuditAppend, ev)
	s.persist(ctx, snap)
	return ev
}

// AuditLog возвращает копию журнала (newest-first).
func (s *Store) AuditLog() []models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEvent(nil), s.state.AuditLog...)
}

func truncateAudit(log []models.AuditEvent) []models.AuditEvent {
	if len(log) > models.AuditLogCap {
		return log[:models.AuditLogCap]
	}
	return log
}
