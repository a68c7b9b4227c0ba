package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/models"
)

// ApplyRemote принимает сырое событие из канала тенанта. Любой мусор
// (битый JSON, неизвестный тип) молча пропускается: чужие версии протокола
// не должны ронять инстанс.
func (s *Store) ApplyRemote(ctx context.Context, raw []byte) {
	var ev messages.ChangeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		s.log.Warn("drop malformed change event", "err", err)
		return
	}
	s.Apply(ctx, ev)
}

// Apply применяет событие изменения от другого инстанса. Правила мержа
// идемпотентны: повторная доставка того же события не меняет состояние.
// Собственное эхо (source == наш instanceID) отфильтровывается — локальная
// мутация уже применена.
func (s *Store) Apply(ctx context.Context, ev messages.ChangeEvent) {
	if ev.Source == s.instanceID {
		if s.metrics != nil {
			s.metrics.BroadcastSkipped.Inc()
		}
		return
	}

	var (
		changed bool
		err     error
	)
	if ev.Type == messages.TypeAuditAppend {
		changed, err = s.applyAuditAppend(ev.Payload)
	} else {
		entity, op, ok := strings.Cut(ev.Type, ":")
		if !ok {
			return
		}
		changed, err = s.applyEntityChange(entity, op, ev.Payload)
	}
	if err != nil {
		s.log.Warn("drop unappliable change event", "type", ev.Type, "err", err)
		return
	}
	if !changed {
		return
	}
	if s.metrics != nil {
		s.metrics.BroadcastApplied.Inc()
	}
	s.mu.Lock()
	snap := s.state
	s.mu.Unlock()
	s.persist(ctx, snap)
}

func (s *Store) applyEntityChange(entity, op string, payload json.RawMessage) (bool, error) {
	switch entity {
	case messages.EntityBooking:
		return applyChange(s, op, payload, bookingsSlot, bookingID)
	case messages.EntityDeliveryProof:
		return applyChange(s, op, payload, deliveryProofsSlot, deliveryProofID)
	case messages.EntityInvoice:
		return applyChange(s, op, payload, invoicesSlot, invoiceID)
	case messages.EntityExpense:
		return applyChange(s, op, payload, expensesSlot, expenseID)
	case messages.EntityLead:
		return applyChange(s, op, payload, leadsSlot, leadID)
	case messages.EntityOpportunity:
		return applyChange(s, op, payload, opportunitiesSlot, opportunityID)
	case messages.EntityLeadActivity:
		return applyChange(s, op, payload, leadActivitiesSlot, leadActivityID)
	case messages.EntityOpportunityActivity:
		return applyChange(s, op, payload, opportunityActivitiesSlot, opportunityActivityID)
	case messages.EntityCustomer:
		return applyChange(s, op, payload, customersSlot, customerID)
	case messages.EntityVehicle:
		return applyChange(s, op, payload, vehiclesSlot, vehicleID)
	case messages.EntityMaintenance:
		return applyChange(s, op, payload, maintenanceSlot, maintenanceID)
	case messages.EntityDriver:
		return applyChange(s, op, payload, driversSlot, driverID)
	case messages.EntityUser:
		return applyChange(s, op, payload, usersSlot, userID)
	default:
		// неизвестная сущность — игнорируем
		return false, nil
	}
}

// applyChange — идемпотентные правила мержа:
//   add    — вставка, если записи с таким id ещё нет (гонка двух инстансов
//            не дублирует запись);
//   update — замена по id, no-op при отсутствии (last write observed wins);
//   delete — удаление по id, no-op при отсутствии.
func applyChange[T any](s *Store, op string, payload json.RawMessage,
	slot func(*models.Snapshot) *[]T, idOf func(T) uint64) (bool, error) {

	switch op {
	case messages.OpAdd, messages.OpUpdate:
		var rec T
		if err := json.Unmarshal(payload, &rec); err != nil {
			return false, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return false, nil
		}
		list := *slot(&s.state)
		i := indexByID(list, idOf(rec), idOf)
		if op == messages.OpAdd {
			if i >= 0 {
				return false, nil
			}
			*slot(&s.state) = insertHead(list, rec)
			return true, nil
		}
		if i < 0 {
			return false, nil
		}
		*slot(&s.state) = replaceAt(list, i, rec)
		return true, nil

	case messages.OpDelete:
		var p messages.DeletePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return false, nil
		}
		list := *slot(&s.state)
		i := indexByID(list, p.ID, idOf)
		if i < 0 {
			return false, nil
		}
		*slot(&s.state) = removeAt(list, i)
		return true, nil

	default:
		return false, nil
	}
}

// applyAuditAppend кладёт чужую запись аудита в голову и заново применяет
// обрезку по границе. Дедуп по id события даёт идемпотичность повторной
// доставки.
func (s *Store) applyAuditAppend(payload json.RawMessage) (bool, error) {
	var ev models.AuditEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, nil
	}
	for _, existing := range s.state.AuditLog {
		if existing.ID == ev.ID {
			return false, nil
		}
	}
	s.state.AuditLog = truncateAudit(insertHead(s.state.AuditLog, ev))
	return true, nil
}
