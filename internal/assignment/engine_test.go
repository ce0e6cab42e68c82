package assignment

import (
	"errors"
	"sync"
	"testing"
	"time"

	"waiterboard/internal/domain"
	"waiterboard/internal/store"
)

func at(min int) time.Time {
	return time.Date(2025, 6, 1, 10, min, 0, 0, time.UTC)
}

func newEngine(t *testing.T) (*Engine, *store.Store, domain.Order) {
	t.Helper()
	s := store.New()
	o, err := s.Create(domain.TypeTakeout, nil, 25, at(0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return New(s), s, o
}

func mustAdvance(t *testing.T, e *Engine, id string, statuses ...domain.OrderStatus) {
	t.Helper()
	for _, st := range statuses {
		if _, err := e.AdvanceStatus(id, st); err != nil {
			t.Fatalf("advance to %s: %v", st, err)
		}
	}
}

func TestClaim(t *testing.T) {
	e, _, o := newEngine(t)
	got, err := e.Claim(o.ID, "w1", at(5))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got.WaiterID != "w1" || got.ClaimedAt == nil || !got.ClaimedAt.Equal(at(5)) {
		t.Fatalf("claim did not stamp waiter and time: %+v", got)
	}
}

func TestClaimErrors(t *testing.T) {
	e, _, o := newEngine(t)

	if _, err := e.Claim("missing", "w1", at(5)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := e.Claim(o.ID, "", at(5)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}

	if _, err := e.Claim(o.ID, "w1", at(5)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := e.Claim(o.ID, "w2", at(6)); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("want ErrAlreadyClaimed, got %v", err)
	}
}

func TestClaimIdempotentForSameWaiter(t *testing.T) {
	e, _, o := newEngine(t)
	first, err := e.Claim(o.ID, "w1", at(5))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	again, err := e.Claim(o.ID, "w1", at(9))
	if err != nil {
		t.Fatalf("re-claim by same waiter must be a no-op, got %v", err)
	}
	if !again.ClaimedAt.Equal(*first.ClaimedAt) {
		t.Fatalf("re-claim must not move the claim time: %v vs %v", again.ClaimedAt, first.ClaimedAt)
	}
}

func TestClaimTerminalOrders(t *testing.T) {
	e, _, o := newEngine(t)
	if _, err := e.AdvanceStatus(o.ID, domain.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := e.Claim(o.ID, "w1", at(5)); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState for cancelled order, got %v", err)
	}
}

func TestDeliverHappyPath(t *testing.T) {
	e, _, o := newEngine(t)
	if _, err := e.Claim(o.ID, "w1", at(5)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	mustAdvance(t, e, o.ID, domain.StatusPreparing, domain.StatusReady)

	got, err := e.Deliver(o.ID, "w1", at(20))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got.Status != domain.StatusDelivered || got.DeliveredBy != "w1" || !got.DeliveredAt.Equal(at(20)) {
		t.Fatalf("deliver did not stamp the record: %+v", got)
	}
}

func TestDeliverErrors(t *testing.T) {
	t.Run("before claim", func(t *testing.T) {
		e, _, o := newEngine(t)
		if _, err := e.Deliver(o.ID, "w1", at(5)); !errors.Is(err, domain.ErrNotClaimed) {
			t.Fatalf("want ErrNotClaimed, got %v", err)
		}
	})
	t.Run("wrong waiter", func(t *testing.T) {
		e, _, o := newEngine(t)
		if _, err := e.Claim(o.ID, "w1", at(5)); err != nil {
			t.Fatalf("claim: %v", err)
		}
		mustAdvance(t, e, o.ID, domain.StatusPreparing, domain.StatusReady)
		if _, err := e.Deliver(o.ID, "w2", at(20)); !errors.Is(err, domain.ErrWrongWaiter) {
			t.Fatalf("want ErrWrongWaiter, got %v", err)
		}
	})
	t.Run("not ready yet", func(t *testing.T) {
		e, _, o := newEngine(t)
		if _, err := e.Claim(o.ID, "w1", at(5)); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if _, err := e.Deliver(o.ID, "w1", at(6)); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("want ErrInvalidState for pending order, got %v", err)
		}
	})
	t.Run("already delivered", func(t *testing.T) {
		e, _, o := newEngine(t)
		if _, err := e.Claim(o.ID, "w1", at(5)); err != nil {
			t.Fatalf("claim: %v", err)
		}
		mustAdvance(t, e, o.ID, domain.StatusPreparing, domain.StatusReady)
		if _, err := e.Deliver(o.ID, "w1", at(20)); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		if _, err := e.Deliver(o.ID, "w1", at(21)); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("want ErrInvalidState for second delivery, got %v", err)
		}
	})
}

func TestReleaseAndReassign(t *testing.T) {
	e, s, o := newEngine(t)
	if _, err := e.Claim(o.ID, "w1", at(5)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if _, err := e.Release(o.ID, "w2"); !errors.Is(err, domain.ErrWrongWaiter) {
		t.Fatalf("want ErrWrongWaiter, got %v", err)
	}

	rel, err := e.Release(o.ID, "w1")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if rel.Claimed() || rel.ClaimedAt != nil {
		t.Fatalf("release must clear the claim: %+v", rel)
	}

	if _, err := e.Release(o.ID, "w1"); !errors.Is(err, domain.ErrNotClaimed) {
		t.Fatalf("second release must fail with ErrNotClaimed, got %v", err)
	}

	if _, err := e.Claim(o.ID, "w2", at(8)); err != nil {
		t.Fatalf("re-claim after release: %v", err)
	}
	mustAdvance(t, e, o.ID, domain.StatusPreparing, domain.StatusReady)
	if _, err := e.Deliver(o.ID, "w2", at(20)); err != nil {
		t.Fatalf("deliver after reassignment: %v", err)
	}

	got, _ := s.Get(o.ID)
	if got.WaiterID != "w2" || got.DeliveredBy != "w2" {
		t.Fatalf("reassignment not attributed to w2: %+v", got)
	}

	if _, err := e.Release(o.ID, "w2"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("release after delivery must fail, got %v", err)
	}
}

func TestAdvanceStatus(t *testing.T) {
	e, _, o := newEngine(t)
	mustAdvance(t, e, o.ID, domain.StatusPreparing, domain.StatusReady)

	if _, err := e.AdvanceStatus(o.ID, domain.StatusPreparing); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("regression must fail, got %v", err)
	}
	if _, err := e.AdvanceStatus(o.ID, domain.StatusDelivered); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("kitchen must not set delivered, got %v", err)
	}

	// Repeating the current status is an idempotent no-op.
	got, err := e.AdvanceStatus(o.ID, domain.StatusReady)
	if err != nil || got.Status != domain.StatusReady {
		t.Fatalf("duplicate advance must be a no-op: %v %+v", err, got)
	}

	if _, err := e.AdvanceStatus(o.ID, domain.StatusCancelled); err != nil {
		t.Fatalf("cancel from ready: %v", err)
	}
	if _, err := e.AdvanceStatus(o.ID, domain.StatusCancelled); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("cancel of a cancelled order must fail, got %v", err)
	}
}

func TestConcurrentClaimExactlyOneWins(t *testing.T) {
	for i := 0; i < 20; i++ {
		e, _, o := newEngine(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, w := range []string{"wA", "wB"} {
			wg.Add(1)
			go func(j int, w string) {
				defer wg.Done()
				_, errs[j] = e.Claim(o.ID, w, at(5))
			}(j, w)
		}
		wg.Wait()

		var wins, rejections int
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrAlreadyClaimed):
				rejections++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 || rejections != 1 {
			t.Fatalf("want exactly one winner, got %d wins, %d rejections", wins, rejections)
		}
	}
}
