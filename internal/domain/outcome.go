package domain

// RequestState is the externally observed state of a session's watermark request
type RequestState int

const (
	StateIdle RequestState = iota
	StatePending
	StateSuccess
	StateFailure
)

// String returns the lowercase state name
func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of the latest request. Data is set only on success,
// Message only on failure.
type Outcome struct {
	State   RequestState
	Data    []byte
	Message string
}

// Idle is the outcome before any request
func Idle() Outcome {
	return Outcome{State: StateIdle}
}

// Pending is the outcome while a request is in flight
func Pending() Outcome {
	return Outcome{State: StatePending}
}

// Success is the outcome of a request that returned an image
func Success(data []byte) Outcome {
	return Outcome{State: StateSuccess, Data: data}
}

// Failure is the outcome of a failed request, with the message for the user
func Failure(message string) Outcome {
	return Outcome{State: StateFailure, Message: message}
}

// Terminal reports whether the outcome is success or failure
func (o Outcome) Terminal() bool {
	return o.State == StateSuccess || o.State == StateFailure
}

// ParseRequestState is the inverse of RequestState.String
func ParseRequestState(s string) (RequestState, bool) {
	for _, st := range []RequestState{StateIdle, StatePending, StateSuccess, StateFailure} {
		if st.String() == s {
			return st, true
		}
	}
	return StateIdle, false
}
