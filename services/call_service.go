package services

import (
	"time"

	"chatify/domain"
	"chatify/errors"
	"chatify/repositories"

	"github.com/google/uuid"
)

type ICallService interface {
	LogCall(actorID, receiverID string, callType domain.CallType, status domain.CallStatus, startedAt, endedAt time.Time) (domain.Call, error)
	History(actorID string) ([]domain.Call, error)
}

// CallService keeps the append-only call log. A record is written once
// and never mutated; ongoing calls log with a zero duration.
type CallService struct {
	calls repositories.ICallRepository
	users repositories.IUserRepository
}

func NewCallService(calls repositories.ICallRepository, users repositories.IUserRepository) *CallService {
	return &CallService{calls: calls, users: users}
}

func (s *CallService) LogCall(actorID, receiverID string, callType domain.CallType, status domain.CallStatus, startedAt, endedAt time.Time) (domain.Call, error) {
	if actorID == receiverID {
		return domain.Call{}, errors.Validationf("cannot call yourself")
	}
	switch callType {
	case domain.CallAudio, domain.CallVideo:
	default:
		return domain.Call{}, errors.Validationf("invalid call type %q", callType)
	}
	switch status {
	case domain.CallOngoing, domain.CallCompleted, domain.CallMissed, domain.CallRejected:
	default:
		return domain.Call{}, errors.Validationf("invalid call status %q", status)
	}
	if _, err := s.users.Get(receiverID); err != nil {
		return domain.Call{}, err
	}

	var duration int
	if status == domain.CallCompleted && endedAt.After(startedAt) {
		duration = int(endedAt.Sub(startedAt).Seconds())
	}
	call := domain.Call{
		ID:          uuid.NewString(),
		CallerID:    actorID,
		ReceiverID:  receiverID,
		Type:        callType,
		Status:      status,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		DurationSec: duration,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.calls.Store(call); err != nil {
		return domain.Call{}, err
	}
	return call, nil
}

func (s *CallService) History(actorID string) ([]domain.Call, error) {
	return s.calls.HistoryFor(actorID)
}
