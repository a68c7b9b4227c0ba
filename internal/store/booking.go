package store

import (
	"context"
	"time"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/models"
)

// AddBooking вставляет бронирование и сеет историю статусов синтетическим
// переходом nil -> начальный статус, с коррелированной записью аудита.
func (s *Store) AddBooking(ctx context.Context, in models.Booking) models.Booking {
	if in.Status == "" {
		in.Status = models.BookingStatusDraft
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return in
	}
	now := s.clock()
	in.ID = s.nextID(maxID(s.state.Bookings, bookingID), len(s.state.Bookings))
	in.CreatedAt, in.UpdatedAt = now, now
	in.ConfirmedAt, in.StartedAt, in.DeliveredAt, in.CancelledAt = nil, nil, nil, nil
	in.StatusHistory = []models.StatusChange{{
		At:    now,
		From:  nil,
		To:    in.Status,
		Actor: s.actorLabel(),
	}}
	s.state.Bookings = insertHead(s.state.Bookings, in)

	audit := s.addAuditLocked(models.AuditActionBookingStatusChange,
		models.AuditEntityRef{Type: messages.EntityBooking, ID: in.ID, Ref: in.BookingNumber},
		map[string]interface{}{"from": nil, "to": in.Status})
	snap := s.state
	s.mu.Unlock()

	s.countMutation(messages.EntityBooking, messages.OpAdd)
	s.publish(ctx, messages.EventType(messages.EntityBooking, messages.OpAdd), in)
	s.publish(ctx, messages.TypeAuditAppend, audit)
	s.persist(ctx, snap)
	return in
}

// UpdateBooking мержит поля записи. Если статус изменился — дописывает
// историю, пишет аудит и проставляет производный timestamp нового статуса.
// Если статус прежний — обычный мерж полей, ничего из этого не срабатывает.
// Таблицы допустимых переходов нет намеренно: любой статус может смениться
// любым, фиксируется каждый фактический переход.
func (s *Store) UpdateBooking(ctx context.Context, rec models.Booking) (models.Booking, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return rec, false
	}
	i := indexByID(s.state.Bookings, rec.ID, bookingID)
	if i < 0 {
		s.mu.Unlock()
		return rec, false
	}
	prev := s.state.Bookings[i]
	now := s.clock()

	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = now
	// История и производные timestamps управляются store'ом, входные значения
	// не могут их откатить.
	rec.StatusHistory = prev.StatusHistory
	rec.ConfirmedAt = coalesceTime(rec.ConfirmedAt, prev.ConfirmedAt)
	rec.StartedAt = coalesceTime(rec.StartedAt, prev.StartedAt)
	rec.DeliveredAt = coalesceTime(rec.DeliveredAt, prev.DeliveredAt)
	rec.CancelledAt = coalesceTime(rec.CancelledAt, prev.CancelledAt)

	statusChanged := rec.Status != prev.Status
	var audit models.AuditEvent
	if statusChanged {
		from := prev.Status
		rec.StatusHistory = append(append([]models.StatusChange(nil), prev.StatusHistory...),
			models.StatusChange{At: now, From: &from, To: rec.Status, Actor: s.actorLabel()})
		applyDerivedTimestamp(&rec, now)
		audit = s.addAuditLocked(models.AuditActionBookingStatusChange,
			models.AuditEntityRef{Type: messages.EntityBooking, ID: rec.ID, Ref: rec.BookingNumber},
			map[string]interface{}{"from": prev.Status, "to": rec.Status})
	}

	s.state.Bookings = replaceAt(s.state.Bookings, i, rec)
	snap := s.state
	s.mu.Unlock()

	s.countMutation(messages.EntityBooking, messages.OpUpdate)
	s.publish(ctx, messages.EventType(messages.EntityBooking, messages.OpUpdate), rec)
	if statusChanged {
		s.publish(ctx, messages.TypeAuditAppend, audit)
	}
	s.persist(ctx, snap)
	return rec, true
}

// applyDerivedTimestamp проставляет timestamp, соответствующий новому
// статусу. Уже установленные значения не перетираются.
func applyDerivedTimestamp(b *models.Booking, now time.Time) {
	switch b.Status {
	case models.BookingStatusConfirmed:
		if b.ConfirmedAt == nil {
			b.ConfirmedAt = &now
		}
	case models.BookingStatusDispatched, models.BookingStatusInTransit:
		if b.StartedAt == nil {
			b.StartedAt = &now
		}
	case models.BookingStatusDelivered:
		if b.DeliveredAt == nil {
			b.DeliveredAt = &now
		}
	case models.BookingStatusCancelled:
		if b.CancelledAt == nil {
			b.CancelledAt = &now
		}
	}
}

func (s *Store) actorLabel() string {
	if s.actor == nil {
		return ""
	}
	if s.actor.Name != "" {
		return s.actor.Name
	}
	return s.actor.ID
}

func coalesceTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}
