package store

import "github.com/dispatchly/fleetsync/internal/models"

// Читатели возвращают копии верхнего уровня; порядок — newest-first.

func getList[T any](s *Store, slot func(*models.Snapshot) *[]T) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), *slot(&s.state)...)
}

func (s *Store) Bookings() []models.Booking               { return getList(s, bookingsSlot) }
func (s *Store) DeliveryProofs() []models.DeliveryProof   { return getList(s, deliveryProofsSlot) }
func (s *Store) Invoices() []models.Invoice               { return getList(s, invoicesSlot) }
func (s *Store) Expenses() []models.Expense               { return getList(s, expensesSlot) }
func (s *Store) Leads() []models.Lead                     { return getList(s, leadsSlot) }
func (s *Store) Opportunities() []models.Opportunity      { return getList(s, opportunitiesSlot) }
func (s *Store) LeadActivities() []models.LeadActivity    { return getList(s, leadActivitiesSlot) }
func (s *Store) OpportunityActivities() []models.OpportunityActivity {
	return getList(s, opportunityActivitiesSlot)
}
func (s *Store) Customers() []models.Customer             { return getList(s, customersSlot) }
func (s *Store) Vehicles() []models.Vehicle               { return getList(s, vehiclesSlot) }
func (s *Store) Maintenance() []models.VehicleMaintenance { return getList(s, maintenanceSlot) }
func (s *Store) Drivers() []models.Driver                 { return getList(s, driversSlot) }
func (s *Store) Users() []models.User                     { return getList(s, usersSlot) }

// BookingByID — удобный точечный доступ.
func (s *Store) BookingByID(id uint64) (models.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexByID(s.state.Bookings, id, bookingID)
	if i < 0 {
		return models.Booking{}, false
	}
	return s.state.Bookings[i], true
}

// InvoiceByID — удобный точечный доступ.
func (s *Store) InvoiceByID(id uint64) (models.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexByID(s.state.Invoices, id, invoiceID)
	if i < 0 {
		return models.Invoice{}, false
	}
	return s.state.Invoices[i], true
}
