package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine returns an engine whose sleeps are recorded instead of slept.
func newTestEngine(b Budget) (*Engine, *[]time.Duration) {
	e := New(b, testLogger())
	var slept []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return e, &slept
}

func TestExecute_FirstAttemptSuccess(t *testing.T) {
	e, slept := newTestEngine(DefaultBudget)

	body, err := e.Execute(context.Background(), "scrape", func(ctx context.Context) ([]byte, error) {
		return []byte(`{"races": 5}`), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"races": 5}` {
		t.Errorf("unexpected body %q", body)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v, want no sleeps on first-attempt success", *slept)
	}
}

func TestExecute_EventualSuccess(t *testing.T) {
	budget := Budget{Initial: 60 * time.Second, Max: 1800 * time.Second, MaxTotal: 23 * time.Hour}
	e, slept := newTestEngine(budget)

	failures := 0
	body, err := e.Execute(context.Background(), "scrape", func(ctx context.Context) ([]byte, error) {
		if failures < 4 {
			failures++
			return nil, errors.New("http 503")
		}
		return []byte(`{"races": 2}`), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"races": 2}` {
		t.Errorf("unexpected body %q", body)
	}

	want := []time.Duration{60 * time.Second, 120 * time.Second, 240 * time.Second, 480 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %d times, want %d: %v", len(*slept), len(want), *slept)
	}
	for i, w := range want {
		if (*slept)[i] != w {
			t.Errorf("sleep %d = %v, want %v", i, (*slept)[i], w)
		}
	}
}

func TestExecute_MalformedPayloadRetriedLikeTransport(t *testing.T) {
	e, slept := newTestEngine(DefaultBudget)

	calls := 0
	body, err := e.Execute(context.Background(), "scrape", func(ctx context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return []byte("<html>rate limited</html>"), nil
		}
		return []byte(`{"ok": true}`), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok": true}` {
		t.Errorf("unexpected body %q", body)
	}
	if len(*slept) != 1 {
		t.Errorf("slept %d times, want 1", len(*slept))
	}
}

func TestExecute_BudgetExhausted(t *testing.T) {
	// 10s + 20s = 30s elapsed; next wait of 40s would reach 60s, so the
	// engine must stop after the third attempt without sleeping again.
	budget := Budget{Initial: 10 * time.Second, Max: 40 * time.Second, MaxTotal: 60 * time.Second}
	e, slept := newTestEngine(budget)

	calls := 0
	_, err := e.Execute(context.Background(), "scrape", func(ctx context.Context) ([]byte, error) {
		calls++
		return nil, errors.New("http 429")
	})
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{10 * time.Second, 20 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i, w := range want {
		if (*slept)[i] != w {
			t.Errorf("sleep %d = %v, want %v", i, (*slept)[i], w)
		}
	}
}

func TestExecute_NeverSleepsAtBudgetBoundary(t *testing.T) {
	// First wait would already meet the budget: exhaust immediately, one call.
	budget := Budget{Initial: time.Minute, Max: time.Minute, MaxTotal: time.Minute}
	e, slept := newTestEngine(budget)

	calls := 0
	_, err := e.Execute(context.Background(), "sync", func(ctx context.Context) ([]byte, error) {
		calls++
		return nil, errors.New("connection refused")
	})
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v, want none", *slept)
	}
}

func TestExecute_ContextCancelDuringSleep(t *testing.T) {
	e := New(DefaultBudget, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, "scrape", func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("http 502")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBudget_Validate(t *testing.T) {
	tests := []struct {
		name   string
		budget Budget
		ok     bool
	}{
		{"defaults", DefaultBudget, true},
		{"equal bounds", Budget{time.Minute, time.Minute, time.Minute}, true},
		{"initial above max", Budget{2 * time.Minute, time.Minute, time.Hour}, false},
		{"max above total", Budget{time.Minute, 2 * time.Hour, time.Hour}, false},
		{"zero initial", Budget{0, time.Minute, time.Hour}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budget.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}
