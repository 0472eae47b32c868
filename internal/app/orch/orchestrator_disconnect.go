package orch

import (
	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
	"github.com/dkeye/Callwire/internal/metrics"
	"github.com/rs/zerolog/log"
)

// OnDisconnect reconciles all state after a connection is lost. Peers learn
// their call ended before they learn the other party went offline.
// Repeated calls are no-ops.
func (o *Orchestrator) OnDisconnect(id domain.Identity) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.Presence.Connected(id) {
		return
	}

	o.endCallLocked(id, domain.EndDisconnect)

	audience := o.visibleTo(id)
	for _, change := range o.Rooms.LeaveAll(id) {
		o.announceMembership(change)
	}

	if rec, ok := o.Presence.Remove(id); ok {
		o.Relay.Broadcast(audience, id, core.EvPresence, core.PresenceChanged{User: rec})
	}
	metrics.ConnectionsActive.Dec()
	log.Info().Str("module", "orch").Str("id", string(id)).Msg("disconnect reconciled")
}
