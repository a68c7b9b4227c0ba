package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/models"
)

func (s *Store) AddInvoice(ctx context.Context, in models.Invoice) models.Invoice {
	if in.Status == "" {
		in.Status = models.InvoiceStatusDraft
	}
	return addRecord(ctx, s, messages.EntityInvoice, invoicesSlot, invoiceID, in,
		func(r *models.Invoice, id uint64, now time.Time) {
			r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
			r.PaidAt = nil
		})
}

// UpdateInvoice мержит поля. Переход в "paid" — единственный случай
// нормализации, и она односторонняя: paid_at проставляется если пуст,
// amount_paid подтягивается к total_amount если не положителен, balance_due
// обнуляется если ещё не ноль. Для остальных статусов никакие суммы не
// корректируются.
func (s *Store) UpdateInvoice(ctx context.Context, rec models.Invoice) (models.Invoice, bool) {
	return updateRecord(ctx, s, messages.EntityInvoice, invoicesSlot, invoiceID, rec,
		func(r *models.Invoice, prev models.Invoice, now time.Time) {
			r.CreatedAt, r.UpdatedAt = prev.CreatedAt, now
			r.PaidAt = coalesceTime(r.PaidAt, prev.PaidAt)
			if r.Status == models.InvoiceStatusPaid {
				if r.PaidAt == nil {
					r.PaidAt = &now
				}
				if !r.AmountPaid.IsPositive() {
					r.AmountPaid = r.TotalAmount
				}
				if !r.BalanceDue.IsZero() {
					r.BalanceDue = decimal.Zero
				}
			}
		})
}

// MarkOverdueInvoices переводит неоплаченные счета с истёкшим due_date в
// "overdue" (через обычный update, чтобы сработали broadcast и persist).
// Возвращает переведённые счета.
func (s *Store) MarkOverdueInvoices(ctx context.Context, now time.Time) []models.Invoice {
	var candidates []models.Invoice
	for _, inv := range s.Invoices() {
		if inv.DueDate == nil || !inv.DueDate.Before(now) {
			continue
		}
		switch inv.Status {
		case models.InvoiceStatusSent, models.InvoiceStatusPartiallyPaid:
			candidates = append(candidates, inv)
		}
	}
	marked := make([]models.Invoice, 0, len(candidates))
	for _, inv := range candidates {
		inv.Status = models.InvoiceStatusOverdue
		if out, ok := s.UpdateInvoice(ctx, inv); ok {
			marked = append(marked, out)
		}
	}
	return marked
}

// DueReminders — счета, по которым пора отправить напоминание.
func (s *Store) DueReminders(now time.Time) []models.Invoice {
	var due []models.Invoice
	for _, inv := range s.Invoices() {
		if !inv.RemindersEnabled || inv.NextReminderAt == nil {
			continue
		}
		switch inv.Status {
		case models.InvoiceStatusPaid, models.InvoiceStatusCancelled, models.InvoiceStatusRefunded:
			continue
		}
		if !inv.NextReminderAt.After(now) {
			due = append(due, inv)
		}
	}
	return due
}

// AdvanceReminder фиксирует отправленное напоминание: инкремент счётчика,
// last_reminder_at = now, next_reminder_at = next (nil завершает серию).
func (s *Store) AdvanceReminder(ctx context.Context, id uint64, now time.Time, next *time.Time) (models.Invoice, bool) {
	inv, ok := s.InvoiceByID(id)
	if !ok {
		return inv, false
	}
	inv.ReminderCount++
	inv.LastReminderAt = &now
	inv.NextReminderAt = next
	return s.UpdateInvoice(ctx, inv)
}
