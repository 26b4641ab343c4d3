package store

import (
	"context"
	"errors"
	"testing"

	"barbershop/backend/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentedCountsByCollection(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	st := WithMetrics(mem)

	ok := metrics.StoreOperations.WithLabelValues("set", "instrumentedProbe", "ok")
	failed := metrics.StoreOperations.WithLabelValues("set", "instrumentedProbe", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	if err := st.Set(ctx, "instrumentedProbe/a", true); err != nil {
		t.Fatal(err)
	}
	if err := st.Set(ctx, "instrumentedProbe/b/c", true); err != nil {
		t.Fatal(err)
	}
	mem.FailOn = func(op Op, _ string) error {
		if op == OpSet {
			return errors.New("unavailable")
		}
		return nil
	}
	if err := st.Set(ctx, "instrumentedProbe/a", false); err == nil {
		t.Fatal("expected injected failure")
	}

	if got := testutil.ToFloat64(ok) - okBefore; got != 2 {
		t.Fatalf("ok sets = %v", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Fatalf("failed sets = %v", got)
	}

	snap, err := st.Get(ctx, "instrumentedProbe/b/c")
	if err != nil || !snap.Exists() {
		t.Fatalf("get through wrapper: %v %v", snap, err)
	}
}
