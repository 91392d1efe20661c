package domain

import "time"

type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

type CallStatus string

const (
	CallOngoing   CallStatus = "ongoing"
	CallCompleted CallStatus = "completed"
	CallMissed    CallStatus = "missed"
	CallRejected  CallStatus = "rejected"
)

// Call is an append-only log record. It is never mutated after creation.
type Call struct {
	ID          string
	CallerID    string
	ReceiverID  string
	Type        CallType
	Status      CallStatus
	StartedAt   time.Time
	EndedAt     time.Time
	DurationSec int
	CreatedAt   time.Time
}
