package orch

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Callwire/internal/app"
	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
	"github.com/dkeye/Callwire/internal/metrics"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// PresenceScope selects who hears about presence changes.
type PresenceScope string

const (
	ScopeGlobal PresenceScope = "global"
	ScopeRoom   PresenceScope = "room"
)

type Options struct {
	RingTimeout time.Duration
	Scope       PresenceScope
	Policy      app.Policy
	ICEServers  []webrtc.ICEServer
}

// Orchestrator is the single mutual-exclusion boundary around presence,
// rooms and calls. Every exported operation holds mu from the first check
// to the last write, so no two events interleave their mutations.
type Orchestrator struct {
	mu sync.Mutex

	Presence *app.Presence
	Rooms    *app.Directory
	Calls    *app.Calls
	Relay    *app.Relay
	Policy   app.Policy

	scope      PresenceScope
	iceServers []webrtc.ICEServer
}

func New(opts Options) *Orchestrator {
	if opts.Policy == nil {
		opts.Policy = app.DropPolicy{}
	}
	if opts.Scope == "" {
		opts.Scope = ScopeGlobal
	}
	o := &Orchestrator{
		Presence:   app.NewPresence(),
		Rooms:      app.NewDirectory(),
		Policy:     opts.Policy,
		scope:      opts.Scope,
		iceServers: opts.ICEServers,
	}
	o.Calls = app.NewCalls(o.Presence, opts.RingTimeout)
	o.Calls.OnRingTimeout(o.onRingTimeout)
	o.Relay = app.NewRelay(o.Calls, o.Rooms, o.Presence, o)
	return o
}

// Send implements app.Outbox. It never blocks.
func (o *Orchestrator) Send(to domain.Identity, event string, data any) bool {
	conn, ok := o.Presence.Conn(to)
	if !ok {
		metrics.FramesDropped.WithLabelValues("offline").Inc()
		return false
	}
	frame, err := core.Encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("encode")
		return false
	}
	err = conn.TrySend(frame)
	switch {
	case err == nil:
		return true
	case errors.Is(err, core.ErrBackpressure):
		metrics.FramesDropped.WithLabelValues("backpressure").Inc()
		switch o.Policy.OnBackPressure(to, event) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("id", string(to)).Str("event", event).Msg("slow connection, kicking")
			conn.Close()
		case app.DropFrame, app.NoAction:
			log.Warn().Str("module", "orch").Str("id", string(to)).Str("event", event).Msg("slow connection, frame dropped")
		}
	default:
		metrics.FramesDropped.WithLabelValues("closed").Inc()
	}
	return false
}

// Connect binds a freshly admitted connection to its identity.
func (o *Orchestrator) Connect(id domain.Identity, conn core.SignalConnection) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.Presence.Bind(id, conn); err != nil {
		return err
	}
	metrics.ConnectionsActive.Inc()
	return nil
}

func (o *Orchestrator) requireRegistered(id domain.Identity) error {
	if !o.Presence.Registered(id) {
		return domain.ErrNotRegistered
	}
	o.Presence.Touch(id)
	return nil
}

// visibleTo lists who should hear about presence changes of id.
func (o *Orchestrator) visibleTo(id domain.Identity) []domain.Identity {
	if o.scope == ScopeRoom {
		seen := make(map[domain.Identity]struct{})
		var out []domain.Identity
		for _, r := range o.Rooms.RoomsOf(id) {
			for _, m := range r.Members {
				if _, dup := seen[m]; dup || m == id {
					continue
				}
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
		return out
	}
	snap := o.Presence.Snapshot()
	out := make([]domain.Identity, 0, len(snap))
	for _, rec := range snap {
		if rec.ID != id {
			out = append(out, rec.ID)
		}
	}
	return out
}
