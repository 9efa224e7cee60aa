package feedcache

import "time"

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Policy.MaxAgeDays = coalesce(o.Policy.MaxAgeDays, DefaultMaxAgeDays)
	if o.Policy.Location == nil {
		o.Policy.Location = time.Local
	}
	o.Logger = orNop(o.Logger)
	if o.Hooks == nil {
		o.Hooks = NopHooks{}
	}
	return o
}

func orNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
