package models

import "time"

// AuditLogCap — жёсткая граница журнала аудита: держим только самые свежие
// записи, старые молча отбрасываются.
const AuditLogCap = 500

// Известные действия. Action — свободная строка, это только те, что пишет
// само ядро.
const (
	AuditActionBookingStatusChange   = "booking.status.change"
	AuditActionMaintenanceAutoCreate = "maintenance.auto_schedule"
)

type AuditActor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

type AuditEntityRef struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
	Ref  string `json:"ref,omitempty"`
}

// AuditEvent — неизменяемая запись журнала. Журнал глобальный, newest-first.
type AuditEvent struct {
	ID     string                 `json:"id"`
	At     time.Time              `json:"at"`
	Actor  *AuditActor            `json:"actor,omitempty"`
	Action string                 `json:"action"`
	Entity AuditEntityRef         `json:"entity"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}
