package prom

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/everyday-items/worksteal"
)

func TestCollector_Registers(t *testing.T) {
	f, err := worksteal.Start(2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer f.Stop()

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(f)); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestCollector_Collect(t *testing.T) {
	f, err := worksteal.Start(2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer f.Stop()

	done := make(chan struct{})
	task := worksteal.NewTask(func(*worksteal.Worker, any) {
		close(done)
	}, nil)
	if err := f.Submit(0, task); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	for !task.Done() {
		time.Sleep(time.Millisecond)
	}

	c := NewCollector(f)
	if got := testutil.CollectAndCount(c); got != 8 {
		t.Errorf("expected 8 metrics collected, got %d", got)
	}

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	values := make(map[string]float64)
	for _, fam := range families {
		switch fam.GetName() {
		case "worksteal_workers":
			values[fam.GetName()] = fam.GetMetric()[0].GetGauge().GetValue()
		default:
			values[fam.GetName()] = fam.GetMetric()[0].GetCounter().GetValue()
		}
	}

	for _, name := range []string{
		"worksteal_tasks_submitted_total",
		"worksteal_tasks_executed_total",
		"worksteal_workers",
	} {
		if _, ok := values[name]; !ok {
			t.Errorf("metric family %s not gathered", name)
		}
	}

	if got := values["worksteal_tasks_submitted_total"]; got < 1 {
		t.Errorf("expected at least 1 submitted, got %f", got)
	}
	if got := values["worksteal_tasks_executed_total"]; got < 1 {
		t.Errorf("expected at least 1 executed, got %f", got)
	}
	if got := values["worksteal_workers"]; got != 2 {
		t.Errorf("expected workers gauge 2, got %f", got)
	}
}
