package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/models"
)

func changeEvent(t *testing.T, source, typ string, payload interface{}) messages.ChangeEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return messages.ChangeEvent{Source: source, Type: typ, Payload: raw}
}

func TestApply_SelfEchoSkipped(t *testing.T) {
	s := newTestStore(t) // InstanceID: inst-a
	ev := changeEvent(t, "inst-a", "lead:add", models.Lead{ID: 1, Name: "echo"})

	s.Apply(context.Background(), ev)
	require.Empty(t, s.Leads())
}

func TestApply_AddIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ev := changeEvent(t, "inst-b", "lead:add", models.Lead{ID: 7, Name: "Ivan"})

	s.Apply(ctx, ev)
	s.Apply(ctx, ev) // повторная доставка
	require.Len(t, s.Leads(), 1)
}

func TestApply_AddRaceKeepsLocalRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	local := s.AddLead(ctx, models.Lead{Name: "local"})
	// другой инстанс одновременно добавил запись с тем же id
	s.Apply(ctx, changeEvent(t, "inst-b", "lead:add", models.Lead{ID: local.ID, Name: "remote"}))

	leads := s.Leads()
	require.Len(t, leads, 1)
	require.Equal(t, "local", leads[0].Name)
}

func TestApply_UpdateReplacesWholeRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Apply(ctx, changeEvent(t, "inst-b", "lead:add", models.Lead{ID: 7, Name: "Ivan", Company: "Acme"}))
	s.Apply(ctx, changeEvent(t, "inst-b", "lead:update", models.Lead{ID: 7, Name: "Ivan Jr."}))

	leads := s.Leads()
	require.Len(t, leads, 1)
	require.Equal(t, "Ivan Jr.", leads[0].Name)
	require.Empty(t, leads[0].Company) // замена целиком, не мерж полей
}

func TestApply_UpdateMissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	s.Apply(context.Background(), changeEvent(t, "inst-b", "lead:update", models.Lead{ID: 99, Name: "ghost"}))
	require.Empty(t, s.Leads())
}

func TestApply_DeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Apply(ctx, changeEvent(t, "inst-b", "lead:add", models.Lead{ID: 7}))
	del := changeEvent(t, "inst-b", "lead:delete", messages.DeletePayload{ID: 7})
	s.Apply(ctx, del)
	s.Apply(ctx, del)
	require.Empty(t, s.Leads())
}

func TestApply_AuditAppendDedupsByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ev := changeEvent(t, "inst-b", messages.TypeAuditAppend, models.AuditEvent{ID: "ev-1", Action: "x"})
	s.Apply(ctx, ev)
	s.Apply(ctx, ev)
	require.Len(t, s.AuditLog(), 1)
}

func TestApplyRemote_MalformedAndUnknownDropped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.ApplyRemote(ctx, []byte("{broken"))
	s.Apply(ctx, changeEvent(t, "inst-b", "martian:add", map[string]int{"id": 1}))
	s.Apply(ctx, changeEvent(t, "inst-b", "noseparator", nil))
	s.Apply(ctx, changeEvent(t, "inst-b", "lead:frobnicate", models.Lead{ID: 1}))

	require.Empty(t, s.Leads())
	require.Empty(t, s.AuditLog())
}

func TestApply_PersistsAfterChange(t *testing.T) {
	snaps := newMemSnaps()
	s := newTestStore(t, func(o *Options) { o.Snapshots = snaps })
	ctx := context.Background()

	s.Apply(ctx, changeEvent(t, "inst-b", "lead:add", models.Lead{ID: 7}))
	require.Equal(t, 1, snaps.saveCount())

	// no-op событие снапшот не переписывает
	s.Apply(ctx, changeEvent(t, "inst-b", "lead:update", models.Lead{ID: 99}))
	require.Equal(t, 1, snaps.saveCount())
}

// Два инстанса одного тенанта: всё, что публикует первый, второй применяет
// через канал, и состояния сходятся — включая историю статусов и аудит.
func TestApply_TwoInstancesConverge(t *testing.T) {
	pub := &capturingPublisher{}
	a := newTestStore(t, func(o *Options) { o.Publisher = pub })
	b := New(context.Background(), testTenant, testOptions(func(o *Options) {
		o.InstanceID = "inst-b"
	}))
	t.Cleanup(b.Close)

	ctx := context.Background()
	bk := a.AddBooking(ctx, models.Booking{BookingNumber: "BK-100", Status: models.BookingStatusScheduled})
	bk.Status = models.BookingStatusDispatched
	_, ok := a.UpdateBooking(ctx, bk)
	require.True(t, ok)
	inv := a.AddInvoice(ctx, models.Invoice{InvoiceNumber: "INV-001"})
	require.False(t, a.DeleteLead(ctx, 1)) // шум: отсутствующий id, событие не публикуется

	for _, e := range pub.all() {
		raw, err := json.Marshal(e.ev)
		require.NoError(t, err)
		b.ApplyRemote(ctx, raw)
	}

	require.Equal(t, len(a.Bookings()), len(b.Bookings()))
	gotB, ok := b.BookingByID(bk.ID)
	require.True(t, ok)
	require.Equal(t, models.BookingStatusDispatched, gotB.Status)
	require.Len(t, gotB.StatusHistory, 2)
	require.NotNil(t, gotB.StartedAt)

	gotInv, ok := b.InvoiceByID(inv.ID)
	require.True(t, ok)
	require.Equal(t, "INV-001", gotInv.InvoiceNumber)

	require.Len(t, b.AuditLog(), 2)
	require.Equal(t, a.AuditLog()[0].ID, b.AuditLog()[0].ID)
}
