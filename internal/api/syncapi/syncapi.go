package syncapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dispatchly/fleetsync/internal/models"
	"github.com/dispatchly/fleetsync/internal/store"
)

// Заголовки tenant identity. Запрос без X-User-ID обслуживается анонимным
// store'ом того же org: состояние живёт только в памяти процесса.
const (
	HeaderOrgID  = "X-Org-ID"
	HeaderUserID = "X-User-ID"
)

// API — HTTP-фасад над Manager'ом: маршруты на каждую коллекцию плюс
// журнал аудита и статус bootstrap'а. Мутации возвращают итоговую запись
// после мержа store'ом.
type API struct {
	stores *store.Manager
	log    *slog.Logger
}

func New(stores *store.Manager, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{stores: stores, log: log}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/state", a.getState)
	r.Get("/bootstrap/status", a.getBootstrapStatus)

	r.Get("/audit", a.getAudit)
	r.Post("/audit", a.postAudit)

	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Bookings))
		r.Post("/", add(a, (*store.Store).AddBooking))
		r.Put("/{id}", update(a,
			func(rec *models.Booking, id uint64) { rec.ID = id },
			(*store.Store).UpdateBooking))
	})
	r.Route("/delivery-proofs", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).DeliveryProofs))
		r.Post("/", add(a, (*store.Store).AddDeliveryProof))
		r.Put("/{id}", update(a,
			func(rec *models.DeliveryProof, id uint64) { rec.ID = id },
			(*store.Store).UpdateDeliveryProof))
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Invoices))
		r.Post("/", add(a, (*store.Store).AddInvoice))
		r.Put("/{id}", update(a,
			func(rec *models.Invoice, id uint64) { rec.ID = id },
			(*store.Store).UpdateInvoice))
	})
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Expenses))
		r.Post("/", add(a, (*store.Store).AddExpense))
		r.Put("/{id}", update(a,
			func(rec *models.Expense, id uint64) { rec.ID = id },
			(*store.Store).UpdateExpense))
	})
	r.Route("/leads", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Leads))
		r.Post("/", add(a, (*store.Store).AddLead))
		r.Put("/{id}", update(a,
			func(rec *models.Lead, id uint64) { rec.ID = id },
			(*store.Store).UpdateLead))
		r.Delete("/{id}", del(a, (*store.Store).DeleteLead))
	})
	r.Route("/opportunities", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Opportunities))
		r.Post("/", add(a, (*store.Store).AddOpportunity))
		r.Put("/{id}", update(a,
			func(rec *models.Opportunity, id uint64) { rec.ID = id },
			(*store.Store).UpdateOpportunity))
	})
	r.Route("/lead-activities", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).LeadActivities))
		r.Post("/", add(a, (*store.Store).AddLeadActivity))
	})
	r.Route("/opportunity-activities", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).OpportunityActivities))
		r.Post("/", add(a, (*store.Store).AddOpportunityActivity))
	})
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Customers))
		r.Post("/", add(a, (*store.Store).AddCustomer))
		r.Put("/{id}", update(a,
			func(rec *models.Customer, id uint64) { rec.ID = id },
			(*store.Store).UpdateCustomer))
		r.Delete("/{id}", del(a, (*store.Store).DeleteCustomer))
	})
	r.Route("/vehicles", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Vehicles))
		r.Post("/", add(a, (*store.Store).AddVehicle))
		r.Put("/{id}", update(a,
			func(rec *models.Vehicle, id uint64) { rec.ID = id },
			(*store.Store).UpdateVehicle))
		r.Delete("/{id}", del(a, (*store.Store).DeleteVehicle))
	})
	r.Route("/maintenance", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Maintenance))
		r.Post("/", add(a, (*store.Store).AddMaintenance))
		r.Put("/{id}", update(a,
			func(rec *models.VehicleMaintenance, id uint64) { rec.ID = id },
			(*store.Store).UpdateMaintenance))
	})
	r.Route("/drivers", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Drivers))
		r.Post("/", add(a, (*store.Store).AddDriver))
		r.Put("/{id}", update(a,
			func(rec *models.Driver, id uint64) { rec.ID = id },
			(*store.Store).UpdateDriver))
	})
	r.Route("/users", func(r chi.Router) {
		r.Get("/", list(a, (*store.Store).Users))
		r.Post("/", add(a, (*store.Store).AddUser))
		r.Put("/{id}", update(a,
			func(rec *models.User, id uint64) { rec.ID = id },
			(*store.Store).UpdateUser))
		r.Delete("/{id}", del(a, (*store.Store).DeleteUser))
	})

	return r
}

func (a *API) tenantStore(r *http.Request) *store.Store {
	t := store.Tenant{
		OrgID:  r.Header.Get(HeaderOrgID),
		UserID: r.Header.Get(HeaderUserID),
	}
	return a.stores.Get(r.Context(), t)
}

func (a *API) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.tenantStore(r).Snapshot())
}

func (a *API) getBootstrapStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.tenantStore(r).BootstrapStatus())
}

func (a *API) getAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.tenantStore(r).AuditLog())
}

func (a *API) postAudit(w http.ResponseWriter, r *http.Request) {
	var ev models.AuditEvent
	if !readJSON(w, r, &ev) {
		return
	}
	out := a.tenantStore(r).LogAuditEvent(r.Context(), ev)
	writeJSON(w, http.StatusCreated, out)
}

func list[T any](a *API, get func(*store.Store) []T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := get(a.tenantStore(r))
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func add[T any](a *API, fn func(*store.Store, context.Context, T) T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if !readJSON(w, r, &in) {
			return
		}
		out := fn(a.tenantStore(r), r.Context(), in)
		writeJSON(w, http.StatusCreated, out)
	}
}

func update[T any](a *API, setID func(*T, uint64), fn func(*store.Store, context.Context, T) (T, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in T
		if !readJSON(w, r, &in) {
			return
		}
		setID(&in, id)
		out, found := fn(a.tenantStore(r), r.Context(), in)
		if !found {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func del(a *API, fn func(*store.Store, context.Context, uint64) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if !fn(a.tenantStore(r), r.Context(), id) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "bad id")
		return 0, false
	}
	return id, true
}

func readJSON(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
