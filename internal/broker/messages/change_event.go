package messages

import (
	"encoding/json"
	"time"
)

// Операции над коллекциями. Полный тип события — "<entity>:<op>",
// например "booking:add". Аудит — отдельный тип "audit:append".
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"

	TypeAuditAppend = "audit:append"
)

// Имена сущностей в типе события.
const (
	EntityBooking             = "booking"
	EntityDeliveryProof       = "delivery_proof"
	EntityInvoice             = "invoice"
	EntityExpense             = "expense"
	EntityLead                = "lead"
	EntityOpportunity         = "opportunity"
	EntityLeadActivity        = "lead_activity"
	EntityOpportunityActivity = "opportunity_activity"
	EntityCustomer            = "customer"
	EntityVehicle             = "vehicle"
	EntityMaintenance         = "maintenance"
	EntityDriver              = "driver"
	EntityUser                = "user"
)

// ChangeEvent — событие изменения, публикуемое инстансом store в канал
// тенанта. Source нужен для фильтрации собственного эха.
type ChangeEvent struct {
	Source  string          `json:"source"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func EventType(entity, op string) string {
	return entity + ":" + op
}

// DeletePayload — payload для событий "<entity>:delete".
type DeletePayload struct {
	ID uint64 `json:"id"`
}

// InvoiceReminderDue — сообщение reminder worker'а о том, что по счёту пора
// отправить напоминание. Публикуется в отдельный топик, не в канал изменений.
type InvoiceReminderDue struct {
	OrgID         string    `json:"org_id"`
	InvoiceID     uint64    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerID    uint64    `json:"customer_id"`
	BalanceDue    string    `json:"balance_due"`
	ReminderCount int       `json:"reminder_count"`
	DueAt         time.Time `json:"due_at"`
}
