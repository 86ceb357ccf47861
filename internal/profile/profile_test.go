package profile

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestForwardProfilerRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewForwardProfiler(reg)
	if err != nil {
		t.Fatalf("NewForwardProfiler failed: %v", err)
	}

	p.ObserveForward("fc0", "fully_connected", 3*time.Millisecond)
	p.ObserveForward("fc0", "fully_connected", 5*time.Millisecond)
	p.ObserveForward("act0", "activation", time.Millisecond)

	if got := testutil.CollectAndCount(p.forward); got != 2 {
		t.Errorf("label combinations = %d, want 2", got)
	}
}

func TestForwardProfilerDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewForwardProfiler(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewForwardProfiler(reg); err == nil {
		t.Error("second registration on the same registry should fail")
	}
}
