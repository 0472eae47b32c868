package domain

import (
	"encoding/json"
	"time"
)

// SignalKind tags a relayed payload. The relay dispatches on the tag only.
type SignalKind int

const (
	SignalOffer SignalKind = iota + 1
	SignalAnswer
	SignalCandidate
)

func ParseSignalKind(s string) (SignalKind, error) {
	switch s {
	case "offer":
		return SignalOffer, nil
	case "answer":
		return SignalAnswer, nil
	case "candidate":
		return SignalCandidate, nil
	}
	return 0, Errorf(CodeValidation, "unknown signal type %q", s)
}

func (k SignalKind) String() string {
	switch k {
	case SignalOffer:
		return "offer"
	case SignalAnswer:
		return "answer"
	case SignalCandidate:
		return "candidate"
	}
	return "unknown"
}

func (k SignalKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SignalKind) UnmarshalText(b []byte) error {
	v, err := ParseSignalKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// SignalEnvelope carries one opaque SDP or ICE blob between call parties.
type SignalEnvelope struct {
	SenderID  Identity
	TargetID  Identity
	Kind      SignalKind
	Payload   json.RawMessage
	Timestamp time.Time
}

const (
	MaxChatLen = 2000
	// MaxSignalPayload bounds one SDP or candidate blob in bytes.
	MaxSignalPayload = 64 << 10
)
