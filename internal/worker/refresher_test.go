package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"patdash/internal/core"
	"patdash/internal/services"
)

type fakeLoader struct {
	calls int32
	fail  bool
}

func (f *fakeLoader) Refresh(ctx context.Context) (services.Snapshot, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.fail && n%2 == 1 {
		return services.Snapshot{}, errors.New("fetch failed")
	}
	return services.Snapshot{Table: core.Table{Records: []core.Record{{Month: "Agosto"}}}}, nil
}

func TestRefresher_KeepsRunningAfterErrors(t *testing.T) {
	loader := &fakeLoader{fail: true}
	r := NewRefresher(loader, 10*time.Millisecond, 0)

	var failures, successes int32
	r.OnResult(func(s services.Snapshot, err error) {
		if err != nil {
			atomic.AddInt32(&failures, 1)
		} else {
			atomic.AddInt32(&successes, 1)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if atomic.LoadInt32(&failures) == 0 || atomic.LoadInt32(&successes) == 0 {
		t.Fatalf("expected both failures and successes, got %d/%d", failures, successes)
	}
}

func TestRefresher_RunOnce(t *testing.T) {
	loader := &fakeLoader{}
	r := NewRefresher(loader, time.Minute, time.Second)
	r.RunOnce(context.Background())
	if loader.calls != 1 {
		t.Fatalf("calls: %d", loader.calls)
	}
}
