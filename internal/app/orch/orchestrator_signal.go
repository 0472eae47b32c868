package orch

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
)

// Signal relays one offer, answer or candidate to the sender's call peer.
func (o *Orchestrator) Signal(sender, target domain.Identity, kind domain.SignalKind, payload json.RawMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(sender); err != nil {
		return err
	}
	return o.Relay.Direct(domain.SignalEnvelope{
		SenderID: sender,
		TargetID: target,
		Kind:     kind,
		Payload:  payload,
	})
}

// Typing records the typing flag and forwards it to a peer or a room.
func (o *Orchestrator) Typing(sender, target domain.Identity, roomID domain.RoomID, isTyping bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(sender); err != nil {
		return err
	}
	ev := core.Typing{SenderID: sender, RoomID: roomID, IsTyping: isTyping}
	if err := o.scoped(sender, target, roomID, core.EvTyping, ev); err != nil {
		return err
	}
	_, err := o.Presence.SetTyping(sender, isTyping)
	return err
}

func (o *Orchestrator) Chat(sender, target domain.Identity, roomID domain.RoomID, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(sender); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return domain.ErrChatEmpty
	}
	if utf8.RuneCountInString(text) > domain.MaxChatLen {
		return domain.ErrChatTooLong
	}
	ev := core.Chat{SenderID: sender, RoomID: roomID, Text: text, Timestamp: time.Now()}
	return o.scoped(sender, target, roomID, core.EvChat, ev)
}

func (o *Orchestrator) scoped(sender, target domain.Identity, roomID domain.RoomID, event string, data any) error {
	switch {
	case roomID != "":
		_, err := o.Relay.ToRoom(sender, roomID, event, data)
		return err
	case target != "":
		return o.Relay.ToPeer(sender, target, event, data)
	}
	return domain.ErrMissingTarget
}
