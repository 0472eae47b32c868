package app

import (
	"time"

	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
	"github.com/dkeye/Callwire/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Outbox delivers one event to one identity. It reports false when the
// frame was not queued.
type Outbox interface {
	Send(to domain.Identity, event string, data any) bool
}

type SignalAuthorizer interface {
	AuthorizeSignal(sender, target domain.Identity) bool
}

// Relay forwards signaling and scoped messages to exactly the allowed
// recipients. It never looks inside signal payloads.
type Relay struct {
	calls    SignalAuthorizer
	rooms    *Directory
	presence *Presence
	out      Outbox
	now      func() time.Time
}

func NewRelay(calls SignalAuthorizer, rooms *Directory, presence *Presence, out Outbox) *Relay {
	return &Relay{calls: calls, rooms: rooms, presence: presence, out: out, now: time.Now}
}

// Direct forwards env to its target when both are parties of one call.
func (r *Relay) Direct(env domain.SignalEnvelope) error {
	if !r.calls.AuthorizeSignal(env.SenderID, env.TargetID) {
		log.Debug().Str("module", "app.relay").Str("from", string(env.SenderID)).Str("to", string(env.TargetID)).Msg("signal dropped: not in call")
		return domain.ErrNotInCall
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = r.now()
	}
	out := core.Signal{
		SenderID:  env.SenderID,
		Type:      env.Kind,
		Payload:   env.Payload,
		Timestamp: env.Timestamp,
	}
	if r.out.Send(env.TargetID, core.EvSignal, out) {
		metrics.SignalsRelayed.WithLabelValues(env.Kind.String()).Inc()
	}
	return nil
}

// ToPeer sends a scoped message to a single registered identity.
func (r *Relay) ToPeer(sender, target domain.Identity, event string, data any) error {
	if sender == target {
		return domain.Errorf(domain.CodeValidation, "cannot send %s to yourself", event)
	}
	if !r.presence.Registered(target) {
		return domain.ErrTargetNotFound
	}
	r.out.Send(target, event, data)
	return nil
}

// ToRoom sends to every current member of the room except the sender.
// Members without a live connection are skipped.
func (r *Relay) ToRoom(sender domain.Identity, id domain.RoomID, event string, data any) (int, error) {
	room, err := r.rooms.Get(id)
	if err != nil {
		return 0, err
	}
	if !room.HasMember(sender) {
		return 0, domain.ErrNotMember
	}
	delivered := 0
	for _, m := range room.Members {
		if m == sender || !r.presence.Connected(m) {
			continue
		}
		if r.out.Send(m, event, data) {
			delivered++
		}
	}
	return delivered, nil
}

// Broadcast sends to every listed identity except skip.
func (r *Relay) Broadcast(to []domain.Identity, skip domain.Identity, event string, data any) int {
	delivered := 0
	for _, id := range to {
		if id == skip || !r.presence.Connected(id) {
			continue
		}
		if r.out.Send(id, event, data) {
			delivered++
		}
	}
	return delivered
}
