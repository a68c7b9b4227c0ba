package syncapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dispatchly/fleetsync/internal/models"
	"github.com/dispatchly/fleetsync/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *store.Manager) {
	t.Helper()
	var n uint64
	m := store.NewManager(store.Options{
		Clock: func() time.Time { return testNow },
		Rand:  func() uint64 { n++; return n },
	})
	api := New(m, nil)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	t.Cleanup(m.CloseAll)
	return srv, m
}

func doReq(t *testing.T, srv *httptest.Server, method, path string, body interface{}, org, user string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if org != "" {
		req.Header.Set(HeaderOrgID, org)
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPI_BookingLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, srv, http.MethodPost, "/bookings", models.Booking{
		BookingNumber: "BK-100",
		Status:        models.BookingStatusScheduled,
	}, "org-1", "u-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Booking](t, resp)
	require.NotZero(t, created.ID)
	require.Len(t, created.StatusHistory, 1)

	created.Status = models.BookingStatusDispatched
	resp = doReq(t, srv, http.MethodPut, "/bookings/1", created, "org-1", "u-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Booking](t, resp)
	require.Len(t, updated.StatusHistory, 2)
	require.NotNil(t, updated.StartedAt)

	resp = doReq(t, srv, http.MethodGet, "/bookings", nil, "org-1", "u-1")
	items := decode[[]models.Booking](t, resp)
	require.Len(t, items, 1)

	// переход отражён в журнале аудита
	resp = doReq(t, srv, http.MethodGet, "/audit", nil, "org-1", "u-1")
	audit := decode[[]models.AuditEvent](t, resp)
	require.Len(t, audit, 2) // create + transition, newest-first
	require.Equal(t, models.AuditActionBookingStatusChange, audit[0].Action)
}

func TestAPI_UpdateMissingIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, srv, http.MethodPut, "/leads/99", models.Lead{Name: "ghost"}, "org-1", "u-1")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doReq(t, srv, http.MethodDelete, "/leads/99", nil, "org-1", "u-1")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_BadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/leads", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set(HeaderOrgID, "org-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doReq(t, srv, http.MethodPut, "/leads/abc", models.Lead{}, "org-1", "u-1")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_TenantIsolation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, srv, http.MethodPost, "/customers", models.Customer{Name: "Acme"}, "org-1", "u-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// другой пользователь того же org не видит чужих данных
	resp = doReq(t, srv, http.MethodGet, "/customers", nil, "org-1", "u-2")
	items := decode[[]models.Customer](t, resp)
	require.Empty(t, items)

	resp = doReq(t, srv, http.MethodGet, "/customers", nil, "org-1", "u-1")
	items = decode[[]models.Customer](t, resp)
	require.Len(t, items, 1)
}

func TestAPI_EmptyListIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, srv, http.MethodGet, "/vehicles", nil, "org-1", "u-1")
	defer resp.Body.Close()
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.Equal(t, "[]", string(bytes.TrimSpace(raw)))
}

func TestAPI_BootstrapStatusAndState(t *testing.T) {
	srv, m := newTestServer(t)

	st := m.Get(t.Context(), store.Tenant{OrgID: "org-1", UserID: "u-1"})
	now := testNow
	st.SetBootstrapStatus(store.BootstrapStatus{FleetLoaded: true, CRMError: "data hub http 502", FinishedAt: &now})

	resp := doReq(t, srv, http.MethodGet, "/bootstrap/status", nil, "org-1", "u-1")
	status := decode[store.BootstrapStatus](t, resp)
	require.True(t, status.FleetLoaded)
	require.Equal(t, "data hub http 502", status.CRMError)

	resp = doReq(t, srv, http.MethodGet, "/state", nil, "org-1", "u-1")
	snap := decode[models.Snapshot](t, resp)
	require.Empty(t, snap.Bookings)
}
