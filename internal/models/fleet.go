package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	VehicleStatusActive      = "active"
	VehicleStatusInactive    = "inactive"
	VehicleStatusMaintenance = "maintenance"
)

// Статусы и типы ТО. Открытая запись = SCHEDULED или IN_PROGRESS.
const (
	MaintenanceStatusScheduled  = "SCHEDULED"
	MaintenanceStatusInProgress = "IN_PROGRESS"
	MaintenanceStatusCompleted  = "COMPLETED"
	MaintenanceStatusCancelled  = "CANCELLED"

	MaintenanceTypeRoutine    = "ROUTINE"
	MaintenanceTypeRepair     = "REPAIR"
	MaintenanceTypeInspection = "INSPECTION"
)

type Vehicle struct {
	ID           uint64 `json:"id"`
	PlateNumber  string `json:"plate_number"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Year         int    `json:"year,omitempty"`
	CapacityKG   float64 `json:"capacity_kg,omitempty"`
	Status       string `json:"status"`

	CurrentKM        float64 `json:"current_km"`
	NextServiceDueKM float64 `json:"next_service_due_km"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type VehicleMaintenance struct {
	ID              uint64          `json:"id"`
	VehicleID       uint64          `json:"vehicle_id"`
	MaintenanceType string          `json:"maintenance_type"`
	Status          string          `json:"status"`
	ServiceDate     time.Time       `json:"service_date"`
	OdometerKM      float64         `json:"odometer_km,omitempty"`
	Cost            decimal.Decimal `json:"cost"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsOpen — запись ещё не завершена (учитывается в инварианте "не более одной
// открытой записи ТО на машину").
func (m VehicleMaintenance) IsOpen() bool {
	return m.Status == MaintenanceStatusScheduled || m.Status == MaintenanceStatusInProgress
}

type Driver struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone,omitempty"`
	LicenseNumber string     `json:"license_number,omitempty"`
	LicenseExpiry *time.Time `json:"license_expiry,omitempty"`
	Status        string     `json:"status,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type User struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"` // "admin" | "dispatcher" | "accountant" | ...
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
