package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusLost      = "lost"
)

// Стадии воронки продаж.
const (
	OpportunityStageProspecting   = "prospecting"
	OpportunityStageQualification = "qualification"
	OpportunityStageProposal      = "proposal"
	OpportunityStageNegotiation   = "negotiation"
	OpportunityStageClosedWon     = "closed_won"
	OpportunityStageClosedLost    = "closed_lost"
)

type Lead struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Source    string    `json:"source,omitempty"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Opportunity struct {
	ID            uint64          `json:"id"`
	Title         string          `json:"title"`
	CustomerID    uint64          `json:"customer_id,omitempty"`
	LeadID        uint64          `json:"lead_id,omitempty"`
	Stage         string          `json:"stage"`
	ExpectedValue decimal.Decimal `json:"expected_value"`
	Probability   int             `json:"probability"` // 0..100
	ExpectedClose *time.Time      `json:"expected_close,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type LeadActivity struct {
	ID        uint64    `json:"id"`
	LeadID    uint64    `json:"lead_id"`
	Kind      string    `json:"kind"` // "call" | "email" | "meeting" | "note"
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OpportunityActivity struct {
	ID            uint64    `json:"id"`
	OpportunityID uint64    `json:"opportunity_id"`
	Kind          string    `json:"kind"`
	Summary       string    `json:"summary,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Customer struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
