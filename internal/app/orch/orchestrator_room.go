package orch

import (
	"github.com/dkeye/Callwire/internal/app"
	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
)

func (o *Orchestrator) CreateRoom(id domain.Identity, name string) (domain.Room, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(id); err != nil {
		return domain.Room{}, err
	}
	room, err := o.Rooms.Create(name, id)
	if err != nil {
		return domain.Room{}, err
	}
	o.Send(id, core.EvGroupCreated, core.GroupEvent{Room: room})
	return room, nil
}

func (o *Orchestrator) JoinRoom(id domain.Identity, roomID domain.RoomID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(id); err != nil {
		return err
	}
	room, err := o.Rooms.Join(roomID, id)
	if err != nil {
		return err
	}
	o.Relay.Broadcast(room.Members, "", core.EvGroupMembers, core.GroupEvent{Room: room})
	return nil
}

func (o *Orchestrator) LeaveRoom(id domain.Identity, roomID domain.RoomID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(id); err != nil {
		return err
	}
	change, err := o.Rooms.Leave(roomID, id)
	if err != nil {
		return err
	}
	o.Send(id, core.EvGroupLeft, core.GroupLeft{RoomID: roomID})
	o.announceMembership(change)
	return nil
}

func (o *Orchestrator) RequestGroups(id domain.Identity) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(id); err != nil {
		return err
	}
	o.Send(id, core.EvGroupList, core.GroupList{Groups: o.Rooms.List()})
	return nil
}

// announceMembership tells the remaining members of a room who is left.
func (o *Orchestrator) announceMembership(change app.RoomChange) {
	if change.Dissolved {
		return
	}
	o.Relay.Broadcast(change.Room.Members, "", core.EvGroupMembers, core.GroupEvent{Room: change.Room})
}
