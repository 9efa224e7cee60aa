package feedcache

import (
	"testing"
	"time"
)

func TestPolicyValid(t *testing.T) {
	ts := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)
	expiry := ts.AddDate(0, 0, 7)

	cases := []struct {
		name string
		p    Policy
		now  time.Time
		want bool
	}{
		{"same instant", Policy{Location: time.UTC}, ts, true},
		{"one second before expiry", Policy{Location: time.UTC}, expiry.Add(-time.Second), true},
		{"exactly at expiry", Policy{Location: time.UTC}, expiry, false},
		{"one second after expiry", Policy{Location: time.UTC}, expiry.Add(time.Second), false},
		{"now before timestamp", Policy{Location: time.UTC}, ts.Add(-time.Hour), true},
		{"custom max age", Policy{MaxAgeDays: 1, Location: time.UTC}, ts.Add(23 * time.Hour), true},
		{"custom max age elapsed", Policy{MaxAgeDays: 1, Location: time.UTC}, ts.Add(24 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.Valid(ts, tc.now); got != tc.want {
				t.Fatalf("Valid(%v, %v)=%v want %v", ts, tc.now, got, tc.want)
			}
		})
	}
}

func TestPolicyCountsCalendarDays(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// DST starts 2024-03-10 in New York: seven calendar days are 167 hours.
	ts := time.Date(2024, time.March, 5, 12, 0, 0, 0, ny)
	p := Policy{Location: ny}

	if got := p.Expiry(ts).Sub(ts); got != 167*time.Hour {
		t.Fatalf("expiry after %v want 167h", got)
	}
	if p.Valid(ts.UTC(), ts.Add(167*time.Hour)) {
		t.Fatal("snapshot must be stale seven calendar days later")
	}
}

// setLocal swaps time.Local for the duration of the test.
func setLocal(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })
	return loc
}

func TestPolicyDefaultsToLocalCalendar(t *testing.T) {
	ny := setLocal(t, "America/New_York")
	ts := time.Date(2024, time.March, 5, 12, 0, 0, 0, ny)

	// The zone a store returns the timestamp in must not matter.
	for _, in := range []time.Time{ts, ts.UTC(), ts.In(time.FixedZone("EST", -5*3600))} {
		if got := (Policy{}).Expiry(in); !got.Equal(ts.AddDate(0, 0, 7)) {
			t.Fatalf("Expiry(%v)=%v want %v", in, got, ts.AddDate(0, 0, 7))
		}
	}

	opts := Options{Store: &storeSpy{}}.withDefaults()
	if opts.Policy.Location != ny {
		t.Fatalf("default location=%v want time.Local", opts.Policy.Location)
	}
}
