package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

func TestLoanObserver(t *testing.T) {
	obs := LoanObserver{}

	before := testutil.ToFloat64(ActionsTotal.WithLabelValues("borrow", "rejected"))
	obs.ActionCompleted(domain.ActionBorrow, "rejected")
	if got := testutil.ToFloat64(ActionsTotal.WithLabelValues("borrow", "rejected")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(InventoryAdjustFailuresTotal.WithLabelValues("increment"))
	obs.InventoryAdjustFailed("increment")
	if got := testutil.ToFloat64(InventoryAdjustFailuresTotal.WithLabelValues("increment")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestObserveRemoteCall(t *testing.T) {
	ObserveRemoteCall("inventory", "get_availability", "ok", time.Now().Add(-20*time.Millisecond))

	if n := testutil.CollectAndCount(RemoteCallDuration); n == 0 {
		t.Fatal("expected at least one remote call series")
	}
}
