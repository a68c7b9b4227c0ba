package store

import (
	"context"
	"time"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/models"
)

func (s *Store) AddVehicle(ctx context.Context, in models.Vehicle) models.Vehicle {
	if in.Status == "" {
		in.Status = models.VehicleStatusActive
	}
	return addRecord(ctx, s, messages.EntityVehicle, vehiclesSlot, vehicleID, in,
		func(r *models.Vehicle, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

// UpdateVehicle мержит поля и следит за порогом ТО: переход
// current_km >= next_service_due_km строго из false в true (машина, уже
// бывшая за порогом, повторно не триггерит) автоматически создаёт плановую
// запись ТО — если у машины нет другой открытой.
func (s *Store) UpdateVehicle(ctx context.Context, rec models.Vehicle) (models.Vehicle, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return rec, false
	}
	i := indexByID(s.state.Vehicles, rec.ID, vehicleID)
	if i < 0 {
		s.mu.Unlock()
		return rec, false
	}
	prev := s.state.Vehicles[i]
	now := s.clock()
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = now
	s.state.Vehicles = replaceAt(s.state.Vehicles, i, rec)

	crossed := !serviceDue(prev) && serviceDue(rec)
	var created *models.VehicleMaintenance
	var audit models.AuditEvent
	if crossed && !s.hasOpenMaintenanceLocked(rec.ID) {
		m := models.VehicleMaintenance{
			ID:              s.nextID(maxID(s.state.Maintenance, maintenanceID), len(s.state.Maintenance)),
			VehicleID:       rec.ID,
			MaintenanceType: models.MaintenanceTypeRoutine,
			Status:          models.MaintenanceStatusScheduled,
			ServiceDate:     truncateToDay(now),
			OdometerKM:      rec.CurrentKM,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		s.state.Maintenance = insertHead(s.state.Maintenance, m)
		created = &m
		audit = s.addAuditLocked(models.AuditActionMaintenanceAutoCreate,
			models.AuditEntityRef{Type: messages.EntityVehicle, ID: rec.ID, Ref: rec.PlateNumber},
			map[string]interface{}{"current_km": rec.CurrentKM, "next_service_due_km": rec.NextServiceDueKM})
	}
	snap := s.state
	s.mu.Unlock()

	s.countMutation(messages.EntityVehicle, messages.OpUpdate)
	s.publish(ctx, messages.EventType(messages.EntityVehicle, messages.OpUpdate), rec)
	if created != nil {
		s.countMutation(messages.EntityMaintenance, messages.OpAdd)
		s.publish(ctx, messages.EventType(messages.EntityMaintenance, messages.OpAdd), *created)
		s.publish(ctx, messages.TypeAuditAppend, audit)
	}
	s.persist(ctx, snap)
	return rec, true
}

func (s *Store) DeleteVehicle(ctx context.Context, id uint64) bool {
	return deleteRecord(ctx, s, messages.EntityVehicle, vehiclesSlot, vehicleID, id)
}

// --- Maintenance ---

func (s *Store) AddMaintenance(ctx context.Context, in models.VehicleMaintenance) models.VehicleMaintenance {
	if in.Status == "" {
		in.Status = models.MaintenanceStatusScheduled
	}
	return addRecord(ctx, s, messages.EntityMaintenance, maintenanceSlot, maintenanceID, in,
		func(r *models.VehicleMaintenance, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) UpdateMaintenance(ctx context.Context, rec models.VehicleMaintenance) (models.VehicleMaintenance, bool) {
	return updateRecord(ctx, s, messages.EntityMaintenance, maintenanceSlot, maintenanceID, rec,
		func(r *models.VehicleMaintenance, prev models.VehicleMaintenance, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
		})
}

func serviceDue(v models.Vehicle) bool {
	return v.NextServiceDueKM > 0 && v.CurrentKM >= v.NextServiceDueKM
}

func (s *Store) hasOpenMaintenanceLocked(vehicleID uint64) bool {
	for _, m := range s.state.Maintenance {
		if m.VehicleID == vehicleID && m.IsOpen() {
			return true
		}
	}
	return false
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
