package feedcache

import "time"

// DefaultMaxAgeDays is how long a snapshot stays fresh unless configured.
const DefaultMaxAgeDays = 7

// Policy decides cache freshness. The zero value uses DefaultMaxAgeDays.
type Policy struct {
	// MaxAgeDays is counted in calendar days. 0 => DefaultMaxAgeDays.
	MaxAgeDays int
	// Location whose calendar days are counted. nil => time.Local, so a
	// snapshot ages the same whatever zone its store hands the timestamp
	// back in.
	Location *time.Location
}

// Expiry is the first instant at which a snapshot taken at ts is stale.
func (p Policy) Expiry(ts time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).AddDate(0, 0, coalesce(p.MaxAgeDays, DefaultMaxAgeDays))
}

// Valid reports whether a snapshot taken at ts is still fresh at now.
// A snapshot exactly MaxAgeDays old is stale.
func (p Policy) Valid(ts, now time.Time) bool {
	return now.Before(p.Expiry(ts))
}
