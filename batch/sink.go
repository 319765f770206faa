package batch

// Sink receives candidates for global query ids.
type Sink interface {
	Push(queryID, candidateID int) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(queryID, candidateID int) error

// Push calls f(queryID, candidateID).
func (f SinkFunc) Push(queryID, candidateID int) error {
	return f(queryID, candidateID)
}
