package cap

// Metrics is the nil-safe counter sink the store reports operation counts
// to, mirroring the teacher's pattern of an optional interface threaded
// through every constructor (pkg/cache.CacheMetrics): a nil Metrics means
// metrics are disabled and every call is a no-op, so the store never
// branches on whether metrics are enabled.
type Metrics interface {
	// IncStore counts a Store() call, grounded on the original's
	// "Eosxd::int::Store" counter.
	IncStore()
	IncImply()
	IncExpire()
	IncRemove()
	IncDelete()
}

func incStore(m Metrics) {
	if m != nil {
		m.IncStore()
	}
}

func incImply(m Metrics) {
	if m != nil {
		m.IncImply()
	}
}

func incExpire(m Metrics) {
	if m != nil {
		m.IncExpire()
	}
}

func incRemove(m Metrics) {
	if m != nil {
		m.IncRemove()
	}
}

func incDelete(m Metrics) {
	if m != nil {
		m.IncDelete()
	}
}
