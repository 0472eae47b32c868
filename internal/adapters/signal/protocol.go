package signal

import (
	"encoding/json"

	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
)

// handlerFunc handles one decoded client event. A returned error is sent
// back to the same connection as an error event.
type handlerFunc func(ctl *SignalWSController, id domain.Identity, c *WsSignalConn, data json.RawMessage) error

var handlers = map[string]handlerFunc{
	core.EvRegister:      handleRegister,
	core.EvRequestUsers:  handleRequestUsers,
	core.EvSetStatus:     handleSetStatus,
	core.EvCreateRoom:    handleCreateRoom,
	core.EvJoinRoom:      handleJoinRoom,
	core.EvLeaveRoom:     handleLeaveRoom,
	core.EvRequestGroups: handleRequestGroups,
	core.EvCallInvite:    handleCallInvite,
	core.EvCallResponse:  handleCallResponse,
	core.EvEndCall:       handleEndCall,
	core.EvSignal:        handleRelaySignal,
	core.EvTyping:        handleTyping,
	core.EvChat:          handleChat,
	core.EvPing:          handlePing,
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, domain.Errorf(domain.CodeBadPayload, "bad payload: %v", err)
	}
	return v, nil
}

type registerPayload struct {
	DisplayName string `json:"displayName"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type createRoomPayload struct {
	Name string `json:"name"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type callInvitePayload struct {
	TargetID   string `json:"targetId"`
	CallType   string `json:"callType"`
	CallerName string `json:"callerName"`
}

type callResponsePayload struct {
	CallerID string `json:"callerId"`
	Decision string `json:"decision"`
}

type signalPayload struct {
	TargetID string          `json:"targetId"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
}

type typingPayload struct {
	TargetID string `json:"targetId"`
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type chatPayload struct {
	TargetID string `json:"targetId"`
	RoomID   string `json:"roomId"`
	Text     string `json:"text"`
}
