package store

import "github.com/dispatchly/fleetsync/internal/models"

// Доступ к коллекциям снапшота для generic-мутаторов.

func bookingsSlot(st *models.Snapshot) *[]models.Booking                { return &st.Bookings }
func deliveryProofsSlot(st *models.Snapshot) *[]models.DeliveryProof    { return &st.DeliveryProofs }
func invoicesSlot(st *models.Snapshot) *[]models.Invoice                { return &st.Invoices }
func expensesSlot(st *models.Snapshot) *[]models.Expense                { return &st.Expenses }
func leadsSlot(st *models.Snapshot) *[]models.Lead                      { return &st.Leads }
func opportunitiesSlot(st *models.Snapshot) *[]models.Opportunity       { return &st.Opportunities }
func leadActivitiesSlot(st *models.Snapshot) *[]models.LeadActivity     { return &st.LeadActivities }
func opportunityActivitiesSlot(st *models.Snapshot) *[]models.OpportunityActivity {
	return &st.OpportunityActivities
}
func customersSlot(st *models.Snapshot) *[]models.Customer              { return &st.Customers }
func vehiclesSlot(st *models.Snapshot) *[]models.Vehicle                { return &st.Vehicles }
func maintenanceSlot(st *models.Snapshot) *[]models.VehicleMaintenance  { return &st.Maintenance }
func driversSlot(st *models.Snapshot) *[]models.Driver                  { return &st.Drivers }
func usersSlot(st *models.Snapshot) *[]models.User                      { return &st.Users }

func bookingID(v models.Booking) uint64                       { return v.ID }
func deliveryProofID(v models.DeliveryProof) uint64           { return v.ID }
func invoiceID(v models.Invoice) uint64                       { return v.ID }
func expenseID(v models.Expense) uint64                       { return v.ID }
func leadID(v models.Lead) uint64                             { return v.ID }
func opportunityID(v models.Opportunity) uint64               { return v.ID }
func leadActivityID(v models.LeadActivity) uint64             { return v.ID }
func opportunityActivityID(v models.OpportunityActivity) uint64 { return v.ID }
func customerID(v models.Customer) uint64                     { return v.ID }
func vehicleID(v models.Vehicle) uint64                       { return v.ID }
func maintenanceID(v models.VehicleMaintenance) uint64        { return v.ID }
func driverID(v models.Driver) uint64                         { return v.ID }
func userID(v models.User) uint64                             { return v.ID }
