package registry

// Metrics is the nil-safe counter sink for registry events, named after
// the original's Eosxd::prot::* counters (SPEC_FULL §A.4).
type Metrics interface {
	IncMount()
	IncOffline()
	IncEvicted()
	IncHeartbeat()
}

func incMount(m Metrics) {
	if m != nil {
		m.IncMount()
	}
}

func incOffline(m Metrics) {
	if m != nil {
		m.IncOffline()
	}
}

func incEvicted(m Metrics) {
	if m != nil {
		m.IncEvicted()
	}
}

func incHeartbeat(m Metrics) {
	if m != nil {
		m.IncHeartbeat()
	}
}
