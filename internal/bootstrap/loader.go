package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/dispatchly/fleetsync/internal/integrations/datahub"
	"github.com/dispatchly/fleetsync/internal/metrics"
	"github.com/dispatchly/fleetsync/internal/store"
)

// Source — клиент ops-data-hub, ровно то, что нужно загрузчику.
type Source interface {
	FetchFleet(ctx context.Context, orgID string) (datahub.FleetData, error)
	FetchCRM(ctx context.Context, orgID string) (datahub.CRMData, error)
}

// Loader поднимает авторитетные данные из hub'а при открытии store'а.
// Fleet- и CRM-домены грузятся параллельно и независимо: падение одного
// не откатывает другой и не роняет store — локальное состояние остаётся
// рабочим, статус отражает частичный провал.
type Loader struct {
	src     Source
	metrics *metrics.Metrics
	log     *slog.Logger
	clock   func() time.Time
}

func NewLoader(src Source, m *metrics.Metrics, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		src:     src,
		metrics: m,
		log:     log,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Run выполняет bootstrap для одного store'а и блокируется до завершения
// обоих доменов. Результаты, пришедшие после отмены ctx, не применяются.
func (l *Loader) Run(ctx context.Context, st *store.Store) store.BootstrapStatus {
	org := st.Tenant().OrgID

	type fleetResult struct {
		data datahub.FleetData
		err  error
	}
	type crmResult struct {
		data datahub.CRMData
		err  error
	}

	fleetCh := make(chan fleetResult, 1)
	crmCh := make(chan crmResult, 1)

	go func() {
		data, err := l.src.FetchFleet(ctx, org)
		fleetCh <- fleetResult{data: data, err: err}
	}()
	go func() {
		data, err := l.src.FetchCRM(ctx, org)
		crmCh <- crmResult{data: data, err: err}
	}()

	fleet := <-fleetCh
	crm := <-crmCh

	var status store.BootstrapStatus
	if ctx.Err() != nil {
		// Тенант сменился или процесс гасится: опоздавшие данные выбрасываем.
		l.log.Info("bootstrap cancelled, discarding results", "org", org)
		return status
	}

	if fleet.err != nil {
		status.FleetError = fleet.err.Error()
		l.log.Warn("fleet bootstrap failed", "org", org, "err", fleet.err)
		l.countFailure("fleet")
	} else {
		st.SeedFleet(ctx, fleet.data.Vehicles, fleet.data.FuelExpenses)
		status.FleetLoaded = true
	}

	if crm.err != nil {
		status.CRMError = crm.err.Error()
		l.log.Warn("crm bootstrap failed", "org", org, "err", crm.err)
		l.countFailure("crm")
	} else {
		st.SeedCRM(ctx, crm.data.Leads, crm.data.Customers)
		status.CRMLoaded = true
	}

	now := l.clock()
	status.FinishedAt = &now
	st.SetBootstrapStatus(status)
	return status
}

func (l *Loader) countFailure(domain string) {
	if l.metrics != nil {
		l.metrics.BootstrapFailures.WithLabelValues(domain).Inc()
	}
}
