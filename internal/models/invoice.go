package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusSent          = "sent"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusOverdue       = "overdue"
	InvoiceStatusCancelled     = "cancelled"
	InvoiceStatusRefunded      = "refunded"
)

type Invoice struct {
	ID            uint64 `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	CustomerID    uint64 `json:"customer_id"`
	BookingID     uint64 `json:"booking_id,omitempty"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	Currency       string          `json:"currency,omitempty"`

	Status  string     `json:"status"`
	DueDate *time.Time `json:"due_date,omitempty"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`

	// Планирование напоминаний об оплате (обрабатывает reminder worker).
	RemindersEnabled bool       `json:"reminders_enabled"`
	ReminderCount    int        `json:"reminder_count"`
	NextReminderAt   *time.Time `json:"next_reminder_at,omitempty"`
	LastReminderAt   *time.Time `json:"last_reminder_at,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Expense struct {
	ID          uint64          `json:"id"`
	Category    string          `json:"category"` // "fuel" | "toll" | "repair" | ...
	VehicleID   uint64          `json:"vehicle_id,omitempty"`
	BookingID   uint64          `json:"booking_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	IncurredAt  *time.Time      `json:"incurred_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
