package models

import "time"

// Snapshot — полный сериализуемый срез состояния одного тенанта. Именно этот
// объект (целиком) пишется в persistence-ключ после каждой мутации.
type Snapshot struct {
	Bookings              []Booking             `json:"bookings"`
	DeliveryProofs        []DeliveryProof       `json:"delivery_proofs"`
	Invoices              []Invoice             `json:"invoices"`
	Expenses              []Expense             `json:"expenses"`
	Leads                 []Lead                `json:"leads"`
	Opportunities         []Opportunity         `json:"opportunities"`
	LeadActivities        []LeadActivity        `json:"lead_activities"`
	OpportunityActivities []OpportunityActivity `json:"opportunity_activities"`
	Customers             []Customer            `json:"customers"`
	Vehicles              []Vehicle             `json:"vehicles"`
	Maintenance           []VehicleMaintenance  `json:"maintenance"`
	Drivers               []Driver              `json:"drivers"`
	Users                 []User                `json:"users"`
	AuditLog              []AuditEvent          `json:"audit_log"`

	SavedAt time.Time `json:"savedAt"`
}
