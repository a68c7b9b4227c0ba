package models

import "time"

// Статусы бронирований (lifecycle свободный: любой статус может смениться любым).
const (
	BookingStatusDraft      = "draft"
	BookingStatusPending    = "pending"
	BookingStatusScheduled  = "scheduled"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusDispatched = "dispatched"
	BookingStatusInTransit  = "in_transit"
	BookingStatusDelivered  = "delivered"
	BookingStatusClosed     = "closed"
	BookingStatusCancelled  = "cancelled"
)

// StatusChange — одна запись в истории статусов. Append-only: записи никогда
// не изменяются и не удаляются.
type StatusChange struct {
	At    time.Time `json:"at"`
	From  *string   `json:"from"`
	To    string    `json:"to"`
	Actor string    `json:"actor,omitempty"`
}

type Booking struct {
	ID            uint64 `json:"id"`
	BookingNumber string `json:"booking_number"`
	CustomerID    uint64 `json:"customer_id"`

	PickupLocation   string     `json:"pickup_location"`
	PickupDate       *time.Time `json:"pickup_date,omitempty"`
	DeliveryLocation string     `json:"delivery_location"`
	DeliveryDate     *time.Time `json:"delivery_date,omitempty"`

	CargoDescription string  `json:"cargo_description,omitempty"`
	CargoWeightKG    float64 `json:"cargo_weight_kg,omitempty"`

	AssignedDriverID  uint64 `json:"assigned_driver_id,omitempty"`
	AssignedVehicleID uint64 `json:"assigned_vehicle_id,omitempty"`

	Status        string         `json:"status"`
	StatusHistory []StatusChange `json:"status_history"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DeliveryProof struct {
	ID         uint64    `json:"id"`
	BookingID  uint64    `json:"booking_id"`
	Kind       string    `json:"kind"` // "signature" | "photo" | "document"
	FileRef    string    `json:"file_ref,omitempty"`
	SignedBy   string    `json:"signed_by,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
