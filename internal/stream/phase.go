package stream

// Phase 表示一次媒体请求所处的阶段。
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOpening
	PhaseRangeEvaluated
	PhaseStreaming
	PhaseClosed
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOpening:
		return "opening"
	case PhaseRangeEvaluated:
		return "range_evaluated"
	case PhaseStreaming:
		return "streaming"
	case PhaseClosed:
		return "closed"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}
