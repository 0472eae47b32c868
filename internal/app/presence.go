package app

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
	"github.com/rs/zerolog/log"
)

type presenceEntry struct {
	conn   core.SignalConnection
	record *domain.PresenceRecord
	seq    uint64
}

// Presence tracks identity <-> connection bindings and the presence record
// of every registered identity.
type Presence struct {
	mu      sync.RWMutex
	entries map[domain.Identity]*presenceEntry
	seq     uint64
	now     func() time.Time
}

func NewPresence() *Presence {
	return &Presence{
		entries: make(map[domain.Identity]*presenceEntry),
		now:     time.Now,
	}
}

// Bind attaches a live connection to id. An id can be bound only once.
func (p *Presence) Bind(id domain.Identity, conn core.SignalConnection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[id]; ok {
		return domain.ErrIdentityInUse
	}
	p.entries[id] = &presenceEntry{conn: conn}
	log.Info().Str("module", "app.presence").Str("id", string(id)).Msg("bound connection")
	return nil
}

func (p *Presence) Connected(id domain.Identity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[id]
	return ok
}

func (p *Presence) Conn(id domain.Identity) (core.SignalConnection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[id]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

func (p *Presence) ConnectionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Register creates or renames the presence record of a bound identity.
func (p *Presence) Register(id domain.Identity, displayName string) (domain.PresenceRecord, error) {
	name, err := domain.NormalizeDisplayName(displayName)
	if err != nil {
		return domain.PresenceRecord{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return domain.PresenceRecord{}, domain.ErrUserNotFound
	}
	if e.record != nil {
		e.record.DisplayName = name
		e.record.LastSeen = p.now()
		log.Info().Str("module", "app.presence").Str("id", string(id)).Str("name", name).Msg("renamed")
		return *e.record, nil
	}
	p.seq++
	e.seq = p.seq
	e.record = &domain.PresenceRecord{
		ID:          id,
		DisplayName: name,
		Status:      domain.StatusOnline,
		LastSeen:    p.now(),
	}
	log.Info().Str("module", "app.presence").Str("id", string(id)).Str("name", name).Msg("registered")
	return *e.record, nil
}

func (p *Presence) Lookup(id domain.Identity) (domain.PresenceRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[id]
	if !ok || e.record == nil {
		return domain.PresenceRecord{}, domain.ErrUserNotFound
	}
	return *e.record, nil
}

func (p *Presence) Registered(id domain.Identity) bool {
	_, err := p.Lookup(id)
	return err == nil
}

func (p *Presence) SetTyping(id domain.Identity, typing bool) (domain.PresenceRecord, error) {
	return p.mutate(id, func(r *domain.PresenceRecord) { r.Typing = typing })
}

func (p *Presence) SetStatus(id domain.Identity, status domain.Status) (domain.PresenceRecord, error) {
	return p.mutate(id, func(r *domain.PresenceRecord) { r.Status = status })
}

// Touch refreshes LastSeen. Unregistered ids are ignored.
func (p *Presence) Touch(id domain.Identity) {
	_, _ = p.mutate(id, func(*domain.PresenceRecord) {})
}

func (p *Presence) mutate(id domain.Identity, fn func(*domain.PresenceRecord)) (domain.PresenceRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok || e.record == nil {
		return domain.PresenceRecord{}, domain.ErrUserNotFound
	}
	fn(e.record)
	e.record.LastSeen = p.now()
	return *e.record, nil
}

// Snapshot returns copies of all records in registration order.
func (p *Presence) Snapshot() []domain.PresenceRecord {
	p.mu.RLock()
	type ordered struct {
		seq uint64
		rec domain.PresenceRecord
	}
	tmp := make([]ordered, 0, len(p.entries))
	for _, e := range p.entries {
		if e.record != nil {
			tmp = append(tmp, ordered{seq: e.seq, rec: *e.record})
		}
	}
	p.mu.RUnlock()

	sort.Slice(tmp, func(i, j int) bool { return tmp[i].seq < tmp[j].seq })
	out := make([]domain.PresenceRecord, len(tmp))
	for i, o := range tmp {
		out[i] = o.rec
	}
	return out
}

// Remove drops the record and the connection binding. It returns the last
// record, marked offline, when one existed.
func (p *Presence) Remove(id domain.Identity) (domain.PresenceRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return domain.PresenceRecord{}, false
	}
	delete(p.entries, id)
	log.Info().Str("module", "app.presence").Str("id", string(id)).Msg("removed")
	if e.record == nil {
		return domain.PresenceRecord{}, false
	}
	rec := *e.record
	rec.Status = domain.StatusOffline
	rec.Typing = false
	rec.LastSeen = p.now()
	return rec, true
}
