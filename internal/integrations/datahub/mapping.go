package datahub

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dispatchly/fleetsync/internal/models"
)

// Маппинг сырых строк в локальные сущности. Дефолты при отсутствии поля:
// строки -> "", числа -> 0, статус машины -> active, статус лида -> new,
// created_at -> момент загрузки, сумма топлива -> 0.

func mapFleet(r fleetResp, now time.Time) FleetData {
	out := FleetData{}
	for _, row := range r.Vehicles {
		v := models.Vehicle{
			ID:               derefU64(row.ID),
			PlateNumber:      derefStr(row.PlateNumber),
			Make:             derefStr(row.Make),
			Model:            derefStr(row.Model),
			Year:             derefInt(row.Year),
			Status:           derefOr(row.Status, models.VehicleStatusActive),
			CurrentKM:        derefF64(row.CurrentKM),
			NextServiceDueKM: derefF64(row.NextServiceDueKM),
			CreatedAt:        derefTime(row.CreatedAt, now),
			UpdatedAt:        now,
		}
		if v.ID == 0 {
			// строка без id бесполезна для мержа — пропускаем
			continue
		}
		out.Vehicles = append(out.Vehicles, v)
	}
	for _, row := range r.Fuel {
		amount := decimal.Zero
		if row.Amount != nil {
			if d, err := decimal.NewFromString(*row.Amount); err == nil {
				amount = d
			}
		}
		e := models.Expense{
			ID:          derefU64(row.ID),
			Category:    "fuel",
			VehicleID:   derefU64(row.VehicleID),
			Amount:      amount,
			Description: derefStr(row.Description),
			IncurredAt:  row.Date,
			CreatedAt:   derefTime(row.Date, now),
			UpdatedAt:   now,
		}
		if e.ID == 0 {
			continue
		}
		out.FuelExpenses = append(out.FuelExpenses, e)
	}
	return out
}

func mapCRM(r crmResp, now time.Time) CRMData {
	out := CRMData{}
	for _, row := range r.Leads {
		l := models.Lead{
			ID:        derefU64(row.ID),
			Name:      derefStr(row.Name),
			Company:   derefStr(row.Company),
			Email:     derefStr(row.Email),
			Phone:     derefStr(row.Phone),
			Source:    derefStr(row.Source),
			Status:    derefOr(row.Status, models.LeadStatusNew),
			CreatedAt: derefTime(row.CreatedAt, now),
			UpdatedAt: now,
		}
		if l.ID == 0 {
			continue
		}
		out.Leads = append(out.Leads, l)
	}
	for _, row := range r.Customers {
		c := models.Customer{
			ID:        derefU64(row.ID),
			Name:      derefStr(row.Name),
			Company:   derefStr(row.Company),
			Email:     derefStr(row.Email),
			Phone:     derefStr(row.Phone),
			Address:   derefStr(row.Address),
			CreatedAt: derefTime(row.CreatedAt, now),
			UpdatedAt: now,
		}
		if c.ID == 0 {
			continue
		}
		out.Customers = append(out.Customers, c)
	}
	return out
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func derefU64(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefF64(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefTime(t *time.Time, def time.Time) time.Time {
	if t == nil {
		return def
	}
	return *t
}
