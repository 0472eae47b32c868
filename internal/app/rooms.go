package app

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Callwire/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

type roomEntry struct {
	room    domain.Room
	members map[domain.Identity]struct{}
}

func (e *roomEntry) view() domain.Room {
	r := e.room
	r.Members = make([]domain.Identity, 0, len(e.members))
	for id := range e.members {
		r.Members = append(r.Members, id)
	}
	sort.Slice(r.Members, func(i, j int) bool { return r.Members[i] < r.Members[j] })
	return r
}

// RoomChange describes the state of a room after a member left it.
type RoomChange struct {
	Room      domain.Room
	Dissolved bool
}

// Directory owns rooms and their member sets. Empty rooms are removed.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*roomEntry
	byUser map[domain.Identity]map[domain.RoomID]struct{}
	newID  func() domain.RoomID
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[domain.RoomID]*roomEntry),
		byUser: make(map[domain.Identity]map[domain.RoomID]struct{}),
		newID:  func() domain.RoomID { return domain.RoomID(ulid.Make().String()) },
	}
}

// Create makes a room with a fresh id and joins creator to it.
func (d *Directory) Create(requested string, creator domain.Identity) (domain.Room, error) {
	name, err := domain.NewRoomName(requested)
	if err != nil {
		return domain.Room{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.newID()
	for _, taken := d.rooms[id]; taken; _, taken = d.rooms[id] {
		id = d.newID()
	}
	e := &roomEntry{
		room:    domain.Room{ID: id, Name: name, CreatedAt: time.Now()},
		members: make(map[domain.Identity]struct{}),
	}
	d.rooms[id] = e
	d.addLocked(e, creator)
	log.Info().Str("module", "app.rooms").Str("room_id", string(id)).Str("name", string(name)).Str("creator", string(creator)).Msg("room created")
	return e.view(), nil
}

func (d *Directory) Join(id domain.RoomID, who domain.Identity) (domain.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	d.addLocked(e, who)
	log.Info().Str("module", "app.rooms").Str("room_id", string(id)).Str("id", string(who)).Msg("member joined")
	return e.view(), nil
}

// Leave removes who from the room and dissolves the room when it empties.
func (d *Directory) Leave(id domain.RoomID, who domain.Identity) (RoomChange, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.rooms[id]
	if !ok {
		return RoomChange{}, domain.ErrRoomNotFound
	}
	if _, member := e.members[who]; !member {
		return RoomChange{}, domain.ErrNotMember
	}
	return d.leaveLocked(e, who), nil
}

// LeaveAll removes who from every room it belongs to.
func (d *Directory) LeaveAll(who domain.Identity) []RoomChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]domain.RoomID, 0, len(d.byUser[who]))
	for id := range d.byUser[who] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]RoomChange, 0, len(ids))
	for _, id := range ids {
		if e, ok := d.rooms[id]; ok {
			out = append(out, d.leaveLocked(e, who))
		}
	}
	return out
}

func (d *Directory) addLocked(e *roomEntry, who domain.Identity) {
	e.members[who] = struct{}{}
	set, ok := d.byUser[who]
	if !ok {
		set = make(map[domain.RoomID]struct{})
		d.byUser[who] = set
	}
	set[e.room.ID] = struct{}{}
}

func (d *Directory) leaveLocked(e *roomEntry, who domain.Identity) RoomChange {
	delete(e.members, who)
	if set, ok := d.byUser[who]; ok {
		delete(set, e.room.ID)
		if len(set) == 0 {
			delete(d.byUser, who)
		}
	}
	log.Info().Str("module", "app.rooms").Str("room_id", string(e.room.ID)).Str("id", string(who)).Msg("member left")

	change := RoomChange{Room: e.view()}
	if len(e.members) == 0 {
		delete(d.rooms, e.room.ID)
		change.Dissolved = true
		log.Info().Str("module", "app.rooms").Str("room_id", string(e.room.ID)).Msg("room dissolved")
	}
	return change
}

func (d *Directory) Get(id domain.RoomID) (domain.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return e.view(), nil
}

func (d *Directory) MembersOf(id domain.RoomID) ([]domain.Identity, error) {
	r, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	return r.Members, nil
}

// RoomsOf lists the rooms who belongs to, ordered by id.
func (d *Directory) RoomsOf(who domain.Identity) []domain.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Room, 0, len(d.byUser[who]))
	for id := range d.byUser[who] {
		if e, ok := d.rooms[id]; ok {
			out = append(out, e.view())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Directory) List() []domain.RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(d.rooms))
	for id, e := range d.rooms {
		out = append(out, domain.RoomInfo{ID: id, Name: e.room.Name, MemberCount: len(e.members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
