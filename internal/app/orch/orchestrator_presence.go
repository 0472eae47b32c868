package orch

import (
	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
)

func (o *Orchestrator) Register(id domain.Identity, displayName string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, err := o.Presence.Register(id, displayName)
	if err != nil {
		return err
	}
	o.Send(id, core.EvRegistered, core.Registered{
		ID:          rec.ID,
		DisplayName: rec.DisplayName,
		ICEServers:  o.iceServers,
	})
	o.Send(id, core.EvUserList, core.UserList{Users: o.Presence.Snapshot()})
	o.Relay.Broadcast(o.visibleTo(id), id, core.EvPresence, core.PresenceChanged{User: rec})
	return nil
}

func (o *Orchestrator) RequestUsers(id domain.Identity) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(id); err != nil {
		return err
	}
	o.Send(id, core.EvUserList, core.UserList{Users: o.Presence.Snapshot()})
	return nil
}

func (o *Orchestrator) SetStatus(id domain.Identity, status domain.Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(id); err != nil {
		return err
	}
	rec, err := o.Presence.SetStatus(id, status)
	if err != nil {
		return err
	}
	o.Relay.Broadcast(o.visibleTo(id), id, core.EvPresence, core.PresenceChanged{User: rec})
	return nil
}
