package domain

import "time"

type CallID string

type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

func ParseCallType(s string) (CallType, error) {
	switch CallType(s) {
	case CallAudio, CallVideo:
		return CallType(s), nil
	}
	return "", Errorf(CodeValidation, "unknown call type %q", s)
}

// CallState moves Ringing -> Active -> Ended or Ringing -> Ended, never back.
type CallState int

const (
	CallRinging CallState = iota
	CallActive
	CallEnded
)

func (s CallState) String() string {
	switch s {
	case CallRinging:
		return "ringing"
	case CallActive:
		return "active"
	case CallEnded:
		return "ended"
	}
	return "unknown"
}

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAccept, DecisionReject:
		return Decision(s), nil
	}
	return "", Errorf(CodeValidation, "unknown decision %q", s)
}

type EndReason string

const (
	EndHangup     EndReason = "hangup"
	EndDisconnect EndReason = "disconnect"
	EndTimeout    EndReason = "timeout"
)

// CallSession is a value copy of a session; the call manager owns the live one.
type CallSession struct {
	ID         CallID    `json:"sessionId"`
	Caller     Identity  `json:"callerId"`
	Callee     Identity  `json:"calleeId"`
	Type       CallType  `json:"callType"`
	State      CallState `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	AnsweredAt time.Time `json:"answeredAt,omitzero"`
}

// Peer returns the other party. ok is false when id is not a party.
func (s CallSession) Peer(id Identity) (Identity, bool) {
	switch id {
	case s.Caller:
		return s.Callee, true
	case s.Callee:
		return s.Caller, true
	}
	return "", false
}
