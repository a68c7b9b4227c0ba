package datahub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dispatchly/fleetsync/internal/models"
)

func TestClient_FetchFleet_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/export/fleet.json", r.URL.Path)
		require.Equal(t, "org-1", r.URL.Query().Get("org"))
		require.Equal(t, "demo", r.URL.Query().Get("apiKey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "vehicles": [
    {"id": 1, "plate_number": "A123BC", "make": "Volvo", "current_km": 118000, "next_service_due_km": 120000},
    {"id": 2, "status": null, "current_km": null},
    {"plate_number": "no-id-row"}
  ],
  "fuel": [
    {"id": 10, "vehicle_id": 1, "amount": "250.50", "description": "diesel"},
    {"id": 11, "vehicle_id": 2, "amount": "not-a-number"}
  ]
}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "demo")
	got, err := c.FetchFleet(context.Background(), "org-1")
	require.NoError(t, err)

	// строка без id отброшена
	require.Len(t, got.Vehicles, 2)
	require.Equal(t, "A123BC", got.Vehicles[0].PlateNumber)
	require.Equal(t, float64(118000), got.Vehicles[0].CurrentKM)
	// дырявая строка получает дефолты
	require.Equal(t, models.VehicleStatusActive, got.Vehicles[1].Status)
	require.Zero(t, got.Vehicles[1].CurrentKM)

	require.Len(t, got.FuelExpenses, 2)
	require.Equal(t, "fuel", got.FuelExpenses[0].Category)
	require.Equal(t, "250.5", got.FuelExpenses[0].Amount.String())
	// нечитаемая сумма -> 0
	require.True(t, got.FuelExpenses[1].Amount.IsZero())
}

func TestClient_FetchCRM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/export/crm.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "leads": [{"id": 5, "name": "Ivan", "status": "contacted"}, {"id": 6}],
  "customers": [{"id": 7, "name": "Acme", "address": "Moscow"}]
}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	got, err := c.FetchCRM(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, got.Leads, 2)
	require.Equal(t, "contacted", got.Leads[0].Status)
	require.Equal(t, models.LeadStatusNew, got.Leads[1].Status)
	require.Len(t, got.Customers, 1)
	require.Equal(t, "Acme", got.Customers[0].Name)
}

func TestClient_Non2xxIsDomainFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.FetchFleet(context.Background(), "org-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")

	_, err = c.FetchCRM(context.Background(), "org-1")
	require.Error(t, err)
}
