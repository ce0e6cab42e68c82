package floor

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"waiterboard/internal/audit"
	"waiterboard/internal/common/mq"
	"waiterboard/internal/domain"
	"waiterboard/internal/metrics"
)

type handlers struct {
	d Deps
}

type createOrderRequest struct {
	Type    string  `json:"type"`
	TableID *string `json:"table_id,omitempty"`
	Total   float64 `json:"total"`
}

func (h *handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}
	o, err := h.d.Orders.Create(domain.OrderType(req.Type), req.TableID, req.Total, time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.OrdersCreatedTotal.Inc()
	h.d.Log.Info("order_created", map[string]any{"order_id": o.ID, "type": o.Type, "total": o.Total})
	writeJSON(w, http.StatusCreated, o)
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.d.Orders.Get(r.PathValue("order_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type actorRequest struct {
	WaiterID string `json:"waiter_id"`
	Reason   string `json:"reason,omitempty"`
}

func (h *handlers) claim(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}
	now := time.Now().UTC()
	o, err := h.d.Engine.Claim(r.PathValue("order_id"), req.WaiterID, now)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// An idempotent re-claim keeps the original timestamp; only a fresh
	// claim is counted and audited.
	if o.ClaimedAt != nil && o.ClaimedAt.Equal(now) {
		metrics.OrdersClaimedTotal.Inc()
		h.recordAudit(r, audit.Entry{OrderID: o.ID, Actor: req.WaiterID, Action: audit.ActionClaim, OccurredAt: now})
		h.d.Log.Info("order_claimed", map[string]any{"order_id": o.ID, "waiter_id": req.WaiterID})
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) deliver(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}
	now := time.Now().UTC()
	o, err := h.d.Engine.Deliver(r.PathValue("order_id"), req.WaiterID, now)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.OrdersDeliveredTotal.Inc()
	if o.ClaimedAt != nil && o.DeliveredAt != nil {
		metrics.DeliveryMinutes.Observe(o.DeliveredAt.Sub(*o.ClaimedAt).Minutes())
	}
	h.recordAudit(r, audit.Entry{OrderID: o.ID, Actor: req.WaiterID, Action: audit.ActionDeliver, OccurredAt: now})
	h.notify(r, mq.StatusUpdate{
		OrderID: o.ID, OldStatus: string(domain.StatusReady), NewStatus: string(o.Status),
		ChangedBy: req.WaiterID, Timestamp: now,
	})
	h.d.Log.Info("order_delivered", map[string]any{"order_id": o.ID, "waiter_id": req.WaiterID})
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) release(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}
	if req.Reason == "" {
		writeProblem(w, http.StatusBadRequest, "reason_required", "release requires a reason")
		return
	}
	now := time.Now().UTC()
	o, err := h.d.Engine.Release(r.PathValue("order_id"), req.WaiterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.OrdersReleasedTotal.Inc()
	h.recordAudit(r, audit.Entry{OrderID: o.ID, Actor: req.WaiterID, Action: audit.ActionRelease, Reason: req.Reason, OccurredAt: now})
	// Release undoes an established assignment; it is always logged with
	// actor and reason.
	h.d.Log.Warn("claim_released", map[string]any{"order_id": o.ID, "waiter_id": req.WaiterID, "reason": req.Reason})
	writeJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by,omitempty"`
}

func (h *handlers) advanceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}
	orderID := r.PathValue("order_id")
	prev, err := h.d.Orders.Get(orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	o, err := h.d.Engine.AdvanceStatus(orderID, domain.OrderStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if o.Status != prev.Status {
		h.notify(r, mq.StatusUpdate{
			OrderID: o.ID, OldStatus: string(prev.Status), NewStatus: string(o.Status),
			ChangedBy: req.ChangedBy, Timestamp: time.Now().UTC(),
		})
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) activeOrders(w http.ResponseWriter, r *http.Request) {
	rows := h.d.Board.ActiveOrders(time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]any{"orders": rows, "count": len(rows)})
}

func (h *handlers) listWaiters(w http.ResponseWriter, r *http.Request) {
	waiters, err := h.d.Waiters.List(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "directory_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"waiters": waiters, "count": len(waiters)})
}

func (h *handlers) waiterStats(w http.ResponseWriter, r *http.Request) {
	waiterID := r.PathValue("waiter_id")
	date := time.Now().In(h.d.Loc)
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.ParseInLocation("2006-01-02", q, h.d.Loc)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "bad_date", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	writeJSON(w, http.StatusOK, h.d.Stats.ComputeStats(waiterID, date).Presented())
}

func (h *handlers) recordAudit(r *http.Request, e audit.Entry) {
	if err := h.d.Audit.Record(r.Context(), e); err != nil {
		h.d.Log.Error("audit_write_failed", err, map[string]any{"order_id": e.OrderID, "action": e.Action})
	}
}

func (h *handlers) notify(r *http.Request, u mq.StatusUpdate) {
	if err := h.d.Notify.PublishStatus(r.Context(), u); err != nil {
		h.d.Log.Error("notify_publish_failed", err, map[string]any{"order_id": u.OrderID})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem emits a simplified RFC7807 problem document.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrAlreadyClaimed):
		metrics.TransitionsRejectedTotal.WithLabelValues("already_claimed").Inc()
		writeProblem(w, http.StatusConflict, "already_claimed", err.Error())
	case errors.Is(err, domain.ErrNotClaimed):
		metrics.TransitionsRejectedTotal.WithLabelValues("not_claimed").Inc()
		writeProblem(w, http.StatusConflict, "not_claimed", err.Error())
	case errors.Is(err, domain.ErrWrongWaiter):
		metrics.TransitionsRejectedTotal.WithLabelValues("wrong_waiter").Inc()
		writeProblem(w, http.StatusForbidden, "wrong_waiter", err.Error())
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidTransition):
		metrics.TransitionsRejectedTotal.WithLabelValues("invalid_state").Inc()
		writeProblem(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeProblem(w, http.StatusBadRequest, "invalid_argument", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
