package recognition

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FinishReason records why scanning stopped.
type FinishReason string

const (
	ReasonNone      FinishReason = ""
	ReasonDeadline  FinishReason = "deadline"
	ReasonExhausted FinishReason = "exhausted"
	ReasonCancelled FinishReason = "cancelled"
	ReasonError     FinishReason = "error"
)

// SendPolicy decides what a failed attendance emission does to the session.
type SendPolicy int

const (
	// SendContinue logs the failure and keeps scanning. The identity stays
	// present and the event is not retried.
	SendContinue SendPolicy = iota
	// SendAbort ends the session with ErrSendFailure.
	SendAbort
)

// ParseSendPolicy accepts "continue" and "abort" (case-insensitive).
func ParseSendPolicy(s string) (SendPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return SendContinue, nil
	case "abort":
		return SendAbort, nil
	default:
		return SendContinue, fmt.Errorf("unknown send failure policy: %s", s)
	}
}

func (p SendPolicy) String() string {
	if p == SendAbort {
		return "abort"
	}
	return "continue"
}
