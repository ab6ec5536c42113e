package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/pitchdata/footystats/internal/platform/logging"
)

func TestNewSchedulerRejectsBadRunTime(t *testing.T) {
	t.Parallel()

	_, err := NewScheduler(nil, nil, SchedulerConfig{TransitionRunAt: "25:99"}, logging.NewNop())
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNextRunAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 28, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		runAt string
		want  time.Time
	}{
		{
			name:  "later today",
			runAt: "15:04",
			want:  time.Date(2026, time.August, 28, 15, 4, 0, 0, time.UTC),
		},
		{
			name:  "already passed rolls to tomorrow",
			runAt: "03:00",
			want:  time.Date(2026, time.August, 29, 3, 0, 0, 0, time.UTC),
		},
		{
			name:  "exact minute rolls to tomorrow",
			runAt: "10:30",
			want:  time.Date(2026, time.August, 29, 10, 30, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := nextRunAt(now, tc.runAt); !got.Equal(tc.want) {
				t.Fatalf("nextRunAt(%q) = %v, want %v", tc.runAt, got, tc.want)
			}
		})
	}
}
