package core

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Callwire/internal/domain"
	"github.com/pion/webrtc/v4"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Client -> server events.
const (
	EvRegister      = "register"
	EvCreateRoom    = "createRoom"
	EvJoinRoom      = "joinRoom"
	EvLeaveRoom     = "leaveRoom"
	EvRequestGroups = "requestGroups"
	EvCallInvite    = "callInvite"
	EvCallResponse  = "callResponse"
	EvSignal        = "signal"
	EvTyping        = "typing"
	EvChat          = "chat"
	EvEndCall       = "endCall"
	EvRequestUsers  = "requestUsers"
	EvSetStatus     = "setStatus"
	EvPing          = "ping"
)

// Server -> client events.
const (
	EvRegistered   = "registered"
	EvUserList     = "userList"
	EvPresence     = "presence"
	EvGroupCreated = "groupCreated"
	EvGroupMembers = "groupMembers"
	EvGroupLeft    = "groupLeft"
	EvGroupList    = "groupList"
	EvIncomingCall = "incomingCall"
	EvCallRinging  = "callRinging"
	EvCallAccepted = "callAccepted"
	EvCallRejected = "callRejected"
	EvCallEnded    = "callEnded"
	EvError        = "error"
	EvPong         = "pong"
)

type Registered struct {
	ID          domain.Identity    `json:"id"`
	DisplayName string             `json:"displayName"`
	ICEServers  []webrtc.ICEServer `json:"iceServers"`
}

type UserList struct {
	Users []domain.PresenceRecord `json:"users"`
}

type PresenceChanged struct {
	User domain.PresenceRecord `json:"user"`
}

type GroupEvent struct {
	Room domain.Room `json:"room"`
}

type GroupLeft struct {
	RoomID domain.RoomID `json:"roomId"`
}

type GroupList struct {
	Groups []domain.RoomInfo `json:"groups"`
}

type IncomingCall struct {
	SessionID  domain.CallID   `json:"sessionId"`
	CallerID   domain.Identity `json:"callerId"`
	CallerName string          `json:"callerName"`
	CallType   domain.CallType `json:"callType"`
}

type CallRinging struct {
	SessionID domain.CallID   `json:"sessionId"`
	TargetID  domain.Identity `json:"targetId"`
	CallType  domain.CallType `json:"callType"`
}

type CallAccepted struct {
	SessionID domain.CallID   `json:"sessionId"`
	CalleeID  domain.Identity `json:"calleeId"`
	CallType  domain.CallType `json:"callType"`
}

type CallRejected struct {
	SessionID domain.CallID   `json:"sessionId"`
	CalleeID  domain.Identity `json:"calleeId"`
}

type CallEnded struct {
	SessionID domain.CallID    `json:"sessionId"`
	PeerID    domain.Identity  `json:"peerId"`
	Reason    domain.EndReason `json:"reason"`
}

type Typing struct {
	SenderID domain.Identity `json:"senderId"`
	RoomID   domain.RoomID   `json:"roomId,omitempty"`
	IsTyping bool            `json:"isTyping"`
}

type Chat struct {
	SenderID  domain.Identity `json:"senderId"`
	RoomID    domain.RoomID   `json:"roomId,omitempty"`
	Text      string          `json:"text"`
	Timestamp time.Time       `json:"timestamp"`
}

type ErrorEvent struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
	Event   string      `json:"event,omitempty"`
}

// Signal is the outbound form of domain.SignalEnvelope.
type Signal struct {
	SenderID  domain.Identity   `json:"senderId"`
	Type      domain.SignalKind `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Timestamp time.Time         `json:"timestamp"`
}
