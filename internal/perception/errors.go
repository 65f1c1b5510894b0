package perception

import "fmt"

// ValidationError reports malformed input: a missing required feature or a
// non-finite value. The caller must fix the data; retrying will not help.
type ValidationError struct {
	Feature string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Feature, e.Reason)
}

// InsufficientDataError reports a training dataset with too few rows.
// Recoverable by accumulating more known-normal data.
type InsufficientDataError struct {
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: got %d rows, need at least %d", e.Rows, e.Required)
}

// InsufficientHistoryError reports that a component does not yet have enough
// buffered readings for a trend estimate.
type InsufficientHistoryError struct {
	Component string
	Points    int
	Required  int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for component %s: got %d points, need at least %d",
		e.Component, e.Points, e.Required)
}

// NotTrainedError reports an operation invoked before Train.
type NotTrainedError struct {
	Op string
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("model is not trained: call Train before %s", e.Op)
}
