// Package floor serves the manager dashboard and waiter clients: claim,
// deliver and release actions, the live board, per-waiter stats and the
// order intake boundary for deployments without a message broker.
package floor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"waiterboard/internal/assignment"
	"waiterboard/internal/audit"
	"waiterboard/internal/common/httpx"
	"waiterboard/internal/common/logger"
	"waiterboard/internal/common/mq"
	"waiterboard/internal/domain"
	"waiterboard/internal/stats"
	"waiterboard/internal/store"
	"waiterboard/internal/tracking"
)

// Directory is the read-only waiter directory the dashboard lists from.
type Directory interface {
	List(ctx context.Context) ([]domain.Waiter, error)
	Get(ctx context.Context, id string) (domain.Waiter, bool, error)
}

// Notifier fans out status changes to interested subscribers.
type Notifier interface {
	PublishStatus(ctx context.Context, u mq.StatusUpdate) error
}

// NopNotifier is used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) PublishStatus(context.Context, mq.StatusUpdate) error { return nil }

type Deps struct {
	Log     *logger.Logger
	Orders  *store.Store
	Engine  *assignment.Engine
	Stats   *stats.Aggregator
	Board   *tracking.View
	Audit   audit.Recorder
	Waiters Directory
	Notify  Notifier
	Loc     *time.Location
}

func Run(ctx context.Context, port int, d Deps) error {
	srv := httpx.New(":"+strconv.Itoa(port), Router(d))
	d.Log.Info("http_listening", map[string]any{"port": port})
	return srv.Run(ctx)
}

// Router wires every endpoint; split out from Run so tests can hit it with
// httptest directly.
func Router(d Deps) *http.ServeMux {
	h := &handlers{d: d}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/orders", h.createOrder)
	mux.HandleFunc("GET /api/v1/orders/{order_id}", h.getOrder)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/claim", h.claim)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/deliver", h.deliver)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/release", h.release)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/status", h.advanceStatus)
	mux.HandleFunc("GET /api/v1/tracking/active", h.activeOrders)
	mux.HandleFunc("GET /api/v1/waiters", h.listWaiters)
	mux.HandleFunc("GET /api/v1/waiters/{waiter_id}/stats", h.waiterStats)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	return mux
}
