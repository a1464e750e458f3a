package dispatch

// Metrics is the nil-safe counter sink the dispatcher reports per-operation
// outcomes to, following the same pattern as pkg/cap.Metrics and
// pkg/broadcast.Metrics.
type Metrics interface {
	IncOp(op string)
	IncNotModified()
	IncMaxChildrenExceeded()
	IncCapValidationFallback()
	IncCapValidationFailure()
}

func incOp(m Metrics, op string) {
	if m != nil {
		m.IncOp(op)
	}
}

func incNotModified(m Metrics) {
	if m != nil {
		m.IncNotModified()
	}
}

func incMaxChildrenExceeded(m Metrics) {
	if m != nil {
		m.IncMaxChildrenExceeded()
	}
}

func incCapValidationFallback(m Metrics) {
	if m != nil {
		m.IncCapValidationFallback()
	}
}

func incCapValidationFailure(m Metrics) {
	if m != nil {
		m.IncCapValidationFailure()
	}
}
