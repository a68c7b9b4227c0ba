package store

import (
	"context"
	"time"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/models"
)

// Общий контракт мутаторов:
//   add    — присваивает id = max(existing)+1, штампует created_at/updated_at,
//            вставляет в голову коллекции, публикует "<entity>:add";
//   update — no-op при отсутствующем id, иначе мержит поля (created_at
//            сохраняется), обновляет updated_at, публикует "<entity>:update";
//   delete — удаляет по id (no-op при отсутствии), публикует "<entity>:delete".
// После каждой мутации снапшот целиком персистится (best-effort).

func addRecord[T any](ctx context.Context, s *Store, entity string,
	slot func(*models.Snapshot) *[]T, idOf func(T) uint64,
	rec T, prep func(rec *T, id uint64, now time.Time)) T {

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return rec
	}
	list := *slot(&s.state)
	id := s.nextID(maxID(list, idOf), len(list))
	prep(&rec, id, s.clock())
	*slot(&s.state) = insertHead(list, rec)
	snap := s.state
	s.mu.Unlock()

	s.countMutation(entity, messages.OpAdd)
	s.publish(ctx, messages.EventType(entity, messages.OpAdd), rec)
	s.persist(ctx, snap)
	return rec
}

func updateRecord[T any](ctx context.Context, s *Store, entity string,
	slot func(*models.Snapshot) *[]T, idOf func(T) uint64,
	rec T, merge func(rec *T, prev T, now time.Time)) (T, bool) {

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return rec, false
	}
	list := *slot(&s.state)
	i := indexByID(list, idOf(rec), idOf)
	if i < 0 {
		s.mu.Unlock()
		return rec, false
	}
	merge(&rec, list[i], s.clock())
	*slot(&s.state) = replaceAt(list, i, rec)
	snap := s.state
	s.mu.Unlock()

	s.countMutation(entity, messages.OpUpdate)
	s.publish(ctx, messages.EventType(entity, messages.OpUpdate), rec)
	s.persist(ctx, snap)
	return rec, true
}

func deleteRecord[T any](ctx context.Context, s *Store, entity string,
	slot func(*models.Snapshot) *[]T, idOf func(T) uint64, id uint64) bool {

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	list := *slot(&s.state)
	i := indexByID(list, id, idOf)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	*slot(&s.state) = removeAt(list, i)
	snap := s.state
	s.mu.Unlock()

	s.countMutation(entity, messages.OpDelete)
	s.publish(ctx, messages.EventType(entity, messages.OpDelete), messages.DeletePayload{ID: id})
	s.persist(ctx, snap)
	return true
}

// --- Leads ---

func (s *Store) AddLead(ctx context.Context, in models.Lead) models.Lead {
	if in.Status == "" {
		in.Status = models.LeadStatusNew
	}
	return addRecord(ctx, s, messages.EntityLead, leadsSlot, leadID, in,
		func(r *models.Lead, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) UpdateLead(ctx context.Context, rec models.Lead) (models.Lead, bool) {
	return updateRecord(ctx, s, messages.EntityLead, leadsSlot, leadID, rec,
		func(r *models.Lead, prev models.Lead, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
		})
}

func (s *Store) DeleteLead(ctx context.Context, id uint64) bool {
	return deleteRecord(ctx, s, messages.EntityLead, leadsSlot, leadID, id)
}

// --- Opportunities ---

func (s *Store) AddOpportunity(ctx context.Context, in models.Opportunity) models.Opportunity {
	if in.Stage == "" {
		in.Stage = models.OpportunityStageProspecting
	}
	return addRecord(ctx, s, messages.EntityOpportunity, opportunitiesSlot, opportunityID, in,
		func(r *models.Opportunity, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) UpdateOpportunity(ctx context.Context, rec models.Opportunity) (models.Opportunity, bool) {
	return updateRecord(ctx, s, messages.EntityOpportunity, opportunitiesSlot, opportunityID, rec,
		func(r *models.Opportunity, prev models.Opportunity, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
		})
}

// --- Activities ---

func (s *Store) AddLeadActivity(ctx context.Context, in models.LeadActivity) models.LeadActivity {
	return addRecord(ctx, s, messages.EntityLeadActivity, leadActivitiesSlot, leadActivityID, in,
		func(r *models.LeadActivity, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) AddOpportunityActivity(ctx context.Context, in models.OpportunityActivity) models.OpportunityActivity {
	return addRecord(ctx, s, messages.EntityOpportunityActivity, opportunityActivitiesSlot, opportunityActivityID, in,
		func(r *models.OpportunityActivity, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

// --- Customers ---

func (s *Store) AddCustomer(ctx context.Context, in models.Customer) models.Customer {
	return addRecord(ctx, s, messages.EntityCustomer, customersSlot, customerID, in,
		func(r *models.Customer, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) UpdateCustomer(ctx context.Context, rec models.Customer) (models.Customer, bool) {
	return updateRecord(ctx, s, messages.EntityCustomer, customersSlot, customerID, rec,
		func(r *models.Customer, prev models.Customer, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
		})
}

func (s *Store) DeleteCustomer(ctx context.Context, id uint64) bool {
	return deleteRecord(ctx, s, messages.EntityCustomer, customersSlot, customerID, id)
}

// --- Drivers ---

func (s *Store) AddDriver(ctx context.Context, in models.Driver) models.Driver {
	return addRecord(ctx, s, messages.EntityDriver, driversSlot, driverID, in,
		func(r *models.Driver, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) UpdateDriver(ctx context.Context, rec models.Driver) (models.Driver, bool) {
	return updateRecord(ctx, s, messages.EntityDriver, driversSlot, driverID, rec,
		func(r *models.Driver, prev models.Driver, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
		})
}

// --- Users ---

func (s *Store) AddUser(ctx context.Context, in models.User) models.User {
	return addRecord(ctx, s, messages.EntityUser, usersSlot, userID, in,
		func(r *models.User, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) UpdateUser(ctx context.Context, rec models.User) (models.User, bool) {
	return updateRecord(ctx, s, messages.EntityUser, usersSlot, userID, rec,
		func(r *models.User, prev models.User, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
		})
}

func (s *Store) DeleteUser(ctx context.Context, id uint64) bool {
	return deleteRecord(ctx, s, messages.EntityUser, usersSlot, userID, id)
}

// --- Expenses ---

func (s *Store) AddExpense(ctx context.Context, in models.Expense) models.Expense {
	return addRecord(ctx, s, messages.EntityExpense, expensesSlot, expenseID, in,
		func(r *models.Expense, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) UpdateExpense(ctx context.Context, rec models.Expense) (models.Expense, bool) {
	return updateRecord(ctx, s, messages.EntityExpense, expensesSlot, expenseID, rec,
		func(r *models.Expense, prev models.Expense, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
		})
}

// --- Delivery proofs ---

func (s *Store) AddDeliveryProof(ctx context.Context, in models.DeliveryProof) models.DeliveryProof {
	return addRecord(ctx, s, messages.EntityDeliveryProof, deliveryProofsSlot, deliveryProofID, in,
		func(r *models.DeliveryProof, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		})
}

func (s *Store) UpdateDeliveryProof(ctx context.Context, rec models.DeliveryProof) (models.DeliveryProof, bool) {
	return updateRecord(ctx, s, messages.EntityDeliveryProof, deliveryProofsSlot, deliveryProofID, rec,
		func(r *models.DeliveryProof, prev models.DeliveryProof, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
		})
}
