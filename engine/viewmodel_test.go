package engine

import (
	"bmon/fetch"
	"bmon/util"
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	_ "bmon/fetch/mock"
)

// gatedService blocks each Fetch until the test releases a result, so tests
// control exactly when the pending fetch resolves.
type gatedService struct {
	fetches chan chan fetch.Result
}

func newGatedService() *gatedService {
	return &gatedService{fetches: make(chan chan fetch.Result, 4)}
}

func (s *gatedService) Fetch(ctx context.Context) (fetch.Balance, error) {
	done := make(chan fetch.Result)
	s.fetches <- done
	res := <-done
	return res.Balance, res.Err
}

func (s *gatedService) Close() error { return nil }

type chanObserver struct {
	ch chan ViewState
}

func (o *chanObserver) Notify(object interface{}) {
	state, ok := object.(ViewState)
	if !ok {
		return
	}
	o.ch <- state
}

func newTestViewModel(t *testing.T) (*ViewModel, *chanObserver) {
	t.Helper()
	t.Setenv("BMON_CONFIG_DIR", t.TempDir())

	logger := util.NewTestingLogger(t)
	log.SetOutput(logger)
	t.Cleanup(func() {
		logger.Commit()
		log.SetOutput(os.Stderr)
	})

	vm := NewViewModel()
	vm.Init()

	obs := &chanObserver{ch: make(chan ViewState, 16)}
	sub := vm.Store().Subscribe(obs)
	t.Cleanup(sub.Cancel)

	return vm, obs
}

func waitForState(t *testing.T, obs *chanObserver, cond func(ViewState) bool) ViewState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state := <-obs.ch:
			if cond(state) {
				return state
			}
		case <-deadline:
			t.Fatal("timed out waiting for state")
		}
	}
}

func TestViewModel_FetchSuccessScenario(t *testing.T) {
	vm, obs := newTestViewModel(t)

	initial := waitForState(t, obs, func(s ViewState) bool { return true })
	if initial.Value != nil || initial.IsFetching || initial.FetchFailed || initial.IsRedacted {
		t.Fatalf("unexpected initial state: %+v", initial)
	}

	svc := newGatedService()
	vm.SourceSelected("gated", "", svc)
	vm.Dispatch(EventViewAppeared)

	fetching := waitForState(t, obs, func(s ViewState) bool { return s.IsFetching })
	if fetching.FetchFailed {
		t.Fatal("failure flag must be clear while a fetch is in flight")
	}
	if fetching.Value != nil {
		t.Fatalf("no value expected before the first fetch resolves: %+v", fetching)
	}

	value := decimal.RequireFromString("42.00")
	asOf := time.Now()
	done := <-svc.fetches
	done <- fetch.Result{Balance: fetch.Balance{Value: value, AsOf: asOf}}

	settled := waitForState(t, obs, func(s ViewState) bool { return !s.IsFetching })
	if settled.FetchFailed {
		t.Fatalf("successful fetch must not set the failure flag: %+v", settled)
	}
	if settled.Value == nil || !settled.Value.Equal(value) {
		t.Fatalf("expected value 42.00, got %+v", settled.Value)
	}
	if settled.UpdatedAt == nil || !settled.UpdatedAt.Equal(asOf) {
		t.Fatalf("expected timestamp %v, got %+v", asOf, settled.UpdatedAt)
	}
}

func TestViewModel_FetchFailureKeepsPriorValue(t *testing.T) {
	vm, obs := newTestViewModel(t)

	svc := newGatedService()
	vm.SourceSelected("gated", "", svc)

	// establish a prior value:
	vm.Dispatch(EventViewAppeared)
	value := decimal.RequireFromString("100.50")
	asOf := time.Now()
	done := <-svc.fetches
	done <- fetch.Result{Balance: fetch.Balance{Value: value, AsOf: asOf}}
	waitForState(t, obs, func(s ViewState) bool { return !s.IsFetching && s.Value != nil })

	// refresh, then fail:
	vm.Dispatch(EventRefreshRequested)
	fetching := waitForState(t, obs, func(s ViewState) bool { return s.IsFetching })
	if fetching.FetchFailed {
		t.Fatal("failure flag must be reset when a fetch starts")
	}

	done = <-svc.fetches
	done <- fetch.Result{Err: context.DeadlineExceeded}

	failed := waitForState(t, obs, func(s ViewState) bool { return !s.IsFetching })
	if !failed.FetchFailed {
		t.Fatal("failed fetch must set the failure flag")
	}
	if failed.Value == nil || !failed.Value.Equal(value) {
		t.Fatalf("failed fetch must leave the prior value untouched, got %+v", failed.Value)
	}
	if failed.UpdatedAt == nil || !failed.UpdatedAt.Equal(asOf) {
		t.Fatalf("failed fetch must leave the prior timestamp untouched, got %+v", failed.UpdatedAt)
	}
}

func TestViewModel_RefreshWhileFetchingIsIgnored(t *testing.T) {
	vm, obs := newTestViewModel(t)

	svc := newGatedService()
	vm.SourceSelected("gated", "", svc)
	vm.Dispatch(EventViewAppeared)

	waitForState(t, obs, func(s ViewState) bool { return s.IsFetching })
	first := <-svc.fetches

	// a redundant refresh while fetching must not start a second fetch;
	// the trailing backgrounded event proves the refresh was processed:
	vm.Dispatch(EventRefreshRequested)
	vm.Dispatch(EventBackgrounded)
	waitForState(t, obs, func(s ViewState) bool { return s.IsRedacted })

	select {
	case <-svc.fetches:
		t.Fatal("a second fetch was started while one was already in flight")
	default:
	}

	first <- fetch.Result{Balance: fetch.Balance{Value: decimal.New(1, 0), AsOf: time.Now()}}
	waitForState(t, obs, func(s ViewState) bool { return !s.IsFetching })
}

func TestViewModel_RedactionFollowsLifecycleOnly(t *testing.T) {
	vm, obs := newTestViewModel(t)

	svc := newGatedService()
	vm.SourceSelected("gated", "", svc)

	// redaction toggles with no fetch involved:
	vm.Dispatch(EventBackgrounded)
	waitForState(t, obs, func(s ViewState) bool { return s.IsRedacted })
	vm.Dispatch(EventForegrounded)
	waitForState(t, obs, func(s ViewState) bool { return !s.IsRedacted })

	// redaction is independent of an in-flight fetch:
	vm.Dispatch(EventRefreshRequested)
	waitForState(t, obs, func(s ViewState) bool { return s.IsFetching })
	vm.Dispatch(EventBackgrounded)
	redacted := waitForState(t, obs, func(s ViewState) bool { return s.IsRedacted })
	if !redacted.IsFetching {
		t.Fatal("backgrounding must not disturb the fetch state machine")
	}

	done := <-svc.fetches
	done <- fetch.Result{Balance: fetch.Balance{Value: decimal.New(5, 0), AsOf: time.Now()}}
	settled := waitForState(t, obs, func(s ViewState) bool { return !s.IsFetching })
	if !settled.IsRedacted {
		t.Fatal("fetch completion must not clear redaction")
	}
}

func TestViewModel_CommandRouting(t *testing.T) {
	vm, obs := newTestViewModel(t)

	// select the mock source through the command surface, as the view would:
	ce, err := vm.CommandFor("source", "select")
	if err != nil {
		t.Fatal(err)
	}

	args := ce.CreateArgs()
	err = json.Unmarshal([]byte(`{"driver":"mock","addr":""}`), args)
	if err != nil {
		t.Fatal(err)
	}

	err = ce.Execute(args)
	if err != nil {
		t.Fatal(err)
	}

	// refresh through the command surface and watch the fetch complete:
	ce, err = vm.CommandFor("balance", "refresh")
	if err != nil {
		t.Fatal(err)
	}
	err = ce.Execute(ce.CreateArgs())
	if err != nil {
		t.Fatal(err)
	}

	settled := waitForState(t, obs, func(s ViewState) bool { return !s.IsFetching && s.Value != nil })
	if settled.FetchFailed {
		t.Fatalf("mock fetch should succeed: %+v", settled)
	}
}

func TestViewModel_CommandForUnknown(t *testing.T) {
	vm, _ := newTestViewModel(t)

	if _, err := vm.CommandFor("nope", "refresh"); err == nil {
		t.Fatal("expected error for unknown view")
	}
	if _, err := vm.CommandFor("balance", "nope"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
