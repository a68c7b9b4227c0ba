package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/models"
)

func TestAddBooking_SeedsHistoryAndAudit(t *testing.T) {
	pub := &capturingPublisher{}
	s := newTestStore(t, func(o *Options) {
		o.Publisher = pub
		o.Actor = &models.AuditActor{ID: "u-1", Role: "dispatcher", Name: "Ivan"}
	})

	b := s.AddBooking(context.Background(), models.Booking{
		BookingNumber: "BK-100",
		Status:        models.BookingStatusScheduled,
	})

	require.Equal(t, uint64(1), b.ID)
	require.Len(t, b.StatusHistory, 1)
	require.Nil(t, b.StatusHistory[0].From)
	require.Equal(t, models.BookingStatusScheduled, b.StatusHistory[0].To)
	require.Equal(t, "Ivan", b.StatusHistory[0].Actor)
	require.Equal(t, testNow, b.StatusHistory[0].At)

	audit := s.AuditLog()
	require.Len(t, audit, 1)
	require.Equal(t, models.AuditActionBookingStatusChange, audit[0].Action)
	require.Equal(t, uint64(1), audit[0].Entity.ID)
	require.Equal(t, "BK-100", audit[0].Entity.Ref)
	require.Nil(t, audit[0].Meta["from"])
	require.Equal(t, models.BookingStatusScheduled, audit[0].Meta["to"])

	require.Equal(t, []string{"booking:add", "audit:append"}, pub.types())
}

func TestAddBooking_DefaultsToDraftAndClearsDerived(t *testing.T) {
	s := newTestStore(t)
	later := testNow.Add(time.Hour)

	b := s.AddBooking(context.Background(), models.Booking{
		DeliveredAt: &later, // входные производные метки не проходят
	})
	require.Equal(t, models.BookingStatusDraft, b.Status)
	require.Nil(t, b.DeliveredAt)
	require.Nil(t, b.ConfirmedAt)
}

func TestUpdateBooking_StatusTransition(t *testing.T) {
	pub := &capturingPublisher{}
	s := newTestStore(t, func(o *Options) { o.Publisher = pub })
	ctx := context.Background()

	b := s.AddBooking(ctx, models.Booking{
		BookingNumber: "BK-100",
		Status:        models.BookingStatusScheduled,
	})

	b.Status = models.BookingStatusDispatched
	got, ok := s.UpdateBooking(ctx, b)
	require.True(t, ok)

	require.Len(t, got.StatusHistory, 2)
	require.Equal(t, models.BookingStatusScheduled, *got.StatusHistory[1].From)
	require.Equal(t, models.BookingStatusDispatched, got.StatusHistory[1].To)
	require.NotNil(t, got.StartedAt)
	require.Equal(t, testNow, *got.StartedAt)

	// ровно одна новая запись аудита, newest-first
	audit := s.AuditLog()
	require.Len(t, audit, 2)
	require.Equal(t, models.BookingStatusScheduled, audit[0].Meta["from"])
	require.Equal(t, models.BookingStatusDispatched, audit[0].Meta["to"])

	require.Equal(t, []string{"booking:add", "audit:append", "booking:update", "audit:append"}, pub.types())
}

func TestUpdateBooking_SameStatusNoHistoryNoAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := s.AddBooking(ctx, models.Booking{Status: models.BookingStatusScheduled})
	b.PickupLocation = "Moscow"
	got, ok := s.UpdateBooking(ctx, b)
	require.True(t, ok)
	require.Equal(t, "Moscow", got.PickupLocation)
	require.Len(t, got.StatusHistory, 1)
	require.Len(t, s.AuditLog(), 1)
}

func TestUpdateBooking_MissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	_, ok := s.UpdateBooking(context.Background(), models.Booking{ID: 99})
	require.False(t, ok)
}

func TestUpdateBooking_DerivedTimestampSetOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := s.AddBooking(ctx, models.Booking{Status: models.BookingStatusScheduled})

	b.Status = models.BookingStatusDispatched
	b, _ = s.UpdateBooking(ctx, b)
	started := *b.StartedAt

	// уход и возврат в in_transit не перетирает started_at
	b.Status = models.BookingStatusScheduled
	b, _ = s.UpdateBooking(ctx, b)
	b.Status = models.BookingStatusInTransit
	b, _ = s.UpdateBooking(ctx, b)
	require.Equal(t, started, *b.StartedAt)
	require.Len(t, b.StatusHistory, 4)
}

func TestUpdateBooking_InputCannotRewriteHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := s.AddBooking(ctx, models.Booking{Status: models.BookingStatusScheduled})
	forged := b
	forged.StatusHistory = nil
	forged.PickupLocation = "Moscow"

	got, ok := s.UpdateBooking(ctx, forged)
	require.True(t, ok)
	require.Len(t, got.StatusHistory, 1)
}

func TestUpdateBooking_HistoryAppendDoesNotMutatePriorSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := s.AddBooking(ctx, models.Booking{Status: models.BookingStatusScheduled})
	snapBefore := s.Snapshot()

	b.Status = models.BookingStatusDelivered
	_, ok := s.UpdateBooking(ctx, b)
	require.True(t, ok)

	// ранее снятый снапшот не видит новой записи истории
	require.Len(t, snapBefore.Bookings[0].StatusHistory, 1)
}

func TestBookingLifecycleTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := s.AddBooking(ctx, models.Booking{Status: models.BookingStatusDraft})
	for _, tc := range []struct {
		status string
		check  func(models.Booking) *time.Time
	}{
		{models.BookingStatusConfirmed, func(b models.Booking) *time.Time { return b.ConfirmedAt }},
		{models.BookingStatusInTransit, func(b models.Booking) *time.Time { return b.StartedAt }},
		{models.BookingStatusDelivered, func(b models.Booking) *time.Time { return b.DeliveredAt }},
		{models.BookingStatusCancelled, func(b models.Booking) *time.Time { return b.CancelledAt }},
	} {
		b.Status = tc.status
		var ok bool
		b, ok = s.UpdateBooking(ctx, b)
		require.True(t, ok)
		require.NotNil(t, tc.check(b), "status %s", tc.status)
	}
	require.Len(t, b.StatusHistory, 5)
	require.Equal(t, messages.EntityBooking, s.AuditLog()[0].Entity.Type)
}
