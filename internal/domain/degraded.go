package domain

// DegradedReason names the dependency that failed during a fail-soft call.
type DegradedReason string

const (
	// DegradedNone means the call completed normally.
	DegradedNone DegradedReason = ""
	// DegradedStore means the vector store was unreachable or errored.
	DegradedStore DegradedReason = "store_unavailable"
	// DegradedEmbedding means the embedding provider failed.
	DegradedEmbedding DegradedReason = "embedding_failed"
	// DegradedSource means an upstream paper catalog failed.
	DegradedSource DegradedReason = "source_failed"
)

// Outcome pairs a fail-soft call's value with an explicit degradation reason,
// so callers can branch on degradation without inspecting logs.
type Outcome[T any] struct {
	Value  T
	Reason DegradedReason
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// DegradedOutcome wraps a zero value with the reason the call degraded.
func DegradedOutcome[T any](reason DegradedReason) Outcome[T] {
	return Outcome[T]{Reason: reason}
}

// Degraded reports whether the call fell back to an empty result.
func (o Outcome[T]) Degraded() bool { return o.Reason != DegradedNone }
