package ratelimit

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker() *Tracker {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return NewTracker(nil, logger)
}

func TestUpdateFromHeaders_ValidHeaders(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Unix()

	tests := []struct {
		name          string
		headers       map[string]string
		wantLimit     int
		wantRemaining int
		wantUsed      int
		wantExhausted bool
	}{
		{
			name: "fresh window",
			headers: map[string]string{
				HeaderLimit:     "5000",
				HeaderRemaining: "4999",
				HeaderUsed:      "1",
				HeaderReset:     strconv.FormatInt(reset, 10),
			},
			wantLimit:     5000,
			wantRemaining: 4999,
			wantUsed:      1,
		},
		{
			name: "used derived when header missing",
			headers: map[string]string{
				HeaderLimit:     "5000",
				HeaderRemaining: "1200",
				HeaderReset:     strconv.FormatInt(reset, 10),
			},
			wantLimit:     5000,
			wantRemaining: 1200,
			wantUsed:      3800,
		},
		{
			name: "exhausted",
			headers: map[string]string{
				HeaderLimit:     "5000",
				HeaderRemaining: "0",
				HeaderUsed:      "5000",
				HeaderReset:     strconv.FormatInt(reset, 10),
			},
			wantLimit:     5000,
			wantRemaining: 0,
			wantUsed:      5000,
			wantExhausted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker()
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			if err := tracker.UpdateFromHeaders(context.Background(), h); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			s, err := tracker.GetState(context.Background())
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}

			if s.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", s.Limit, tt.wantLimit)
			}
			if s.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", s.Remaining, tt.wantRemaining)
			}
			if s.Used != tt.wantUsed {
				t.Errorf("Used = %d, want %d", s.Used, tt.wantUsed)
			}
			if s.Exhausted() != tt.wantExhausted {
				t.Errorf("Exhausted() = %v, want %v", s.Exhausted(), tt.wantExhausted)
			}
			if s.ResetAt.Unix() != reset {
				t.Errorf("ResetAt = %d, want %d", s.ResetAt.Unix(), reset)
			}
		})
	}
}

func TestUpdateFromHeaders_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name        string
		headers     map[string]string
		shouldError bool
	}{
		{
			name:        "no quota headers",
			headers:     map[string]string{},
			shouldError: false,
		},
		{
			name:        "invalid remaining",
			headers:     map[string]string{HeaderRemaining: "many", HeaderLimit: "5000"},
			shouldError: true,
		},
		{
			name:        "missing limit",
			headers:     map[string]string{HeaderRemaining: "10"},
			shouldError: true,
		},
		{
			name:        "invalid reset",
			headers:     map[string]string{HeaderRemaining: "10", HeaderLimit: "5000", HeaderReset: "tomorrow"},
			shouldError: true,
		},
		{
			name:        "invalid used",
			headers:     map[string]string{HeaderRemaining: "10", HeaderLimit: "5000", HeaderUsed: "x"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker()
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			err := tracker.UpdateFromHeaders(context.Background(), h)
			if tt.shouldError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestGetState_Unknown(t *testing.T) {
	tracker := newTestTracker()

	s, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if s.Limit != -1 || s.Remaining != -1 {
		t.Errorf("unknown summary = %+v, want Limit/Remaining -1", s)
	}
}

func TestTracker_Summary(t *testing.T) {
	tracker := newTestTracker()
	resetAt := time.Now().Add(time.Hour).Truncate(time.Second)

	if err := tracker.Record(context.Background(), Summary{Limit: 5000, Remaining: 321, ResetAt: resetAt}, "query"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	s, err := tracker.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if s.Remaining != 321 {
		t.Errorf("Remaining = %d, want 321", s.Remaining)
	}
	if s.LastUpdate.IsZero() {
		t.Error("Record() should stamp LastUpdate")
	}
}

func TestTracker_Signal(t *testing.T) {
	now := time.Now()

	tracker := newTestTracker()
	if sig := tracker.Signal(now); sig.WaitSeconds != DefaultWaitSeconds {
		t.Errorf("Signal() without summary = %d, want %d", sig.WaitSeconds, DefaultWaitSeconds)
	}

	if err := tracker.Record(context.Background(), Summary{Limit: 5000, Remaining: 0, ResetAt: now.Add(75 * time.Second)}, "headers"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if sig := tracker.Signal(now); sig.WaitSeconds != 75 {
		t.Errorf("Signal() = %d, want 75", sig.WaitSeconds)
	}
}
