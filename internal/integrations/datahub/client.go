package datahub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/dispatchly/fleetsync/internal/models"
)

// Client ходит в ops-data-hub — upstream-сервис с авторитетными выгрузками
// fleet- и CRM-доменов. Два независимых GET-эндпоинта; non-2xx считается
// отказом домена целиком.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type FleetData struct {
	Vehicles     []models.Vehicle
	FuelExpenses []models.Expense
}

type CRMData struct {
	Leads     []models.Lead
	Customers []models.Customer
}

// Сырые строки выгрузки. Все поля опциональны: hub исторически отдаёт
// дырявые записи, дефолты задаются при маппинге.
type fleetResp struct {
	Vehicles []vehicleRow `json:"vehicles"`
	Fuel     []fuelRow    `json:"fuel"`
}

type vehicleRow struct {
	ID               *uint64  `json:"id"`
	PlateNumber      *string  `json:"plate_number"`
	Make             *string  `json:"make"`
	Model            *string  `json:"model"`
	Year             *int     `json:"year"`
	Status           *string  `json:"status"`
	CurrentKM        *float64 `json:"current_km"`
	NextServiceDueKM *float64 `json:"next_service_due_km"`
	CreatedAt        *time.Time `json:"created_at"`
}

type fuelRow struct {
	ID          *uint64    `json:"id"`
	VehicleID   *uint64    `json:"vehicle_id"`
	Amount      *string    `json:"amount"` // десятичная строка
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
}

type crmResp struct {
	Leads     []leadRow     `json:"leads"`
	Customers []customerRow `json:"customers"`
}

type leadRow struct {
	ID        *uint64    `json:"id"`
	Name      *string    `json:"name"`
	Company   *string    `json:"company"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
	Source    *string    `json:"source"`
	Status    *string    `json:"status"`
	CreatedAt *time.Time `json:"created_at"`
}

type customerRow struct {
	ID        *uint64    `json:"id"`
	Name      *string    `json:"name"`
	Company   *string    `json:"company"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
	Address   *string    `json:"address"`
	CreatedAt *time.Time `json:"created_at"`
}

func (c *Client) FetchFleet(ctx context.Context, orgID string) (FleetData, error) {
	var r fleetResp
	if err := c.get(ctx, "/export/fleet.json", orgID, &r); err != nil {
		return FleetData{}, err
	}
	return mapFleet(r, time.Now().UTC()), nil
}

func (c *Client) FetchCRM(ctx context.Context, orgID string) (CRMData, error) {
	var r crmResp
	if err := c.get(ctx, "/export/crm.json", orgID, &r); err != nil {
		return CRMData{}, err
	}
	return mapCRM(r, time.Now().UTC()), nil
}

func (c *Client) get(ctx context.Context, path, orgID string, out interface{}) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = path

	q := u.Query()
	q.Set("org", orgID)
	if c.apiKey != "" {
		q.Set("apiKey", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("data hub http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}
