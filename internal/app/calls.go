package app

import (
	"sync"
	"time"

	"github.com/dkeye/Callwire/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PresenceLookup is what the call manager needs to know about users.
type PresenceLookup interface {
	Registered(id domain.Identity) bool
}

type callEntry struct {
	session domain.CallSession
	timer   *time.Timer
}

// stopTimer must be called on every transition away from Ringing.
func (e *callEntry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// Calls owns call sessions. Every identity takes part in at most one
// Ringing or Active session; Ended sessions are removed immediately.
type Calls struct {
	mu         sync.Mutex
	sessions   map[domain.CallID]*callEntry
	byIdentity map[domain.Identity]domain.CallID

	presence    PresenceLookup
	ringTimeout time.Duration
	onTimeout   func(domain.CallID)
	now         func() time.Time
}

// NewCalls creates a call manager. ringTimeout <= 0 disables ring expiry.
func NewCalls(presence PresenceLookup, ringTimeout time.Duration) *Calls {
	c := &Calls{
		sessions:    make(map[domain.CallID]*callEntry),
		byIdentity:  make(map[domain.Identity]domain.CallID),
		presence:    presence,
		ringTimeout: ringTimeout,
		now:         time.Now,
	}
	c.onTimeout = func(id domain.CallID) { c.Expire(id) }
	return c
}

// OnRingTimeout replaces the handler run when a ringing call times out.
// The handler is expected to call Expire.
func (c *Calls) OnRingTimeout(fn func(domain.CallID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTimeout = fn
}

func (c *Calls) Invite(caller, callee domain.Identity, callType domain.CallType) (domain.CallSession, error) {
	if _, err := domain.ParseCallType(string(callType)); err != nil {
		return domain.CallSession{}, err
	}
	if caller == callee {
		return domain.CallSession{}, domain.ErrSelfCall
	}
	if !c.presence.Registered(callee) {
		return domain.CallSession{}, domain.ErrTargetNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.byIdentity[caller]; busy {
		return domain.CallSession{}, domain.ErrAlreadyInCall
	}
	if _, busy := c.byIdentity[callee]; busy {
		return domain.CallSession{}, domain.ErrTargetBusy
	}

	e := &callEntry{session: domain.CallSession{
		ID:        domain.CallID(uuid.NewString()),
		Caller:    caller,
		Callee:    callee,
		Type:      callType,
		State:     domain.CallRinging,
		CreatedAt: c.now(),
	}}
	c.sessions[e.session.ID] = e
	c.byIdentity[caller] = e.session.ID
	c.byIdentity[callee] = e.session.ID

	if c.ringTimeout > 0 {
		id, fire := e.session.ID, c.onTimeout
		e.timer = time.AfterFunc(c.ringTimeout, func() { fire(id) })
	}
	log.Info().Str("module", "app.calls").Str("session", string(e.session.ID)).
		Str("caller", string(caller)).Str("callee", string(callee)).Str("type", string(callType)).Msg("ringing")
	return e.session, nil
}

// Respond applies the callee's decision to the ringing call from caller.
// Anything but an exact match leaves all sessions untouched.
func (c *Calls) Respond(responder, caller domain.Identity, decision domain.Decision) (domain.CallSession, error) {
	if _, err := domain.ParseDecision(string(decision)); err != nil {
		return domain.CallSession{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byIdentity[responder]
	if !ok {
		return domain.CallSession{}, domain.ErrInvalidSession
	}
	e := c.sessions[id]
	s := e.session
	if s.State != domain.CallRinging || s.Callee != responder || s.Caller != caller {
		return domain.CallSession{}, domain.ErrInvalidSession
	}

	e.stopTimer()
	switch decision {
	case domain.DecisionAccept:
		e.session.State = domain.CallActive
		e.session.AnsweredAt = c.now()
		log.Info().Str("module", "app.calls").Str("session", string(id)).Msg("active")
		return e.session, nil
	default:
		c.removeLocked(e)
		log.Info().Str("module", "app.calls").Str("session", string(id)).Msg("rejected")
		s.State = domain.CallEnded
		return s, nil
	}
}

// AuthorizeSignal reports whether sender and target are the two parties of
// one live session.
func (c *Calls) AuthorizeSignal(sender, target domain.Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byIdentity[sender]
	if !ok {
		return false
	}
	peer, ok := c.sessions[id].session.Peer(sender)
	return ok && peer == target
}

// End finishes the session initiator takes part in. ok is false when there
// is none, which is not an error.
func (c *Calls) End(initiator domain.Identity) (s domain.CallSession, peer domain.Identity, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, found := c.byIdentity[initiator]
	if !found {
		return domain.CallSession{}, "", false
	}
	e := c.sessions[id]
	e.stopTimer()
	c.removeLocked(e)
	s = e.session
	s.State = domain.CallEnded
	peer, _ = s.Peer(initiator)
	log.Info().Str("module", "app.calls").Str("session", string(id)).Str("by", string(initiator)).Msg("ended")
	return s, peer, true
}

// Expire ends the session if it is still ringing.
func (c *Calls) Expire(id domain.CallID) (domain.CallSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[id]
	if !ok || e.session.State != domain.CallRinging {
		return domain.CallSession{}, false
	}
	e.stopTimer()
	c.removeLocked(e)
	s := e.session
	s.State = domain.CallEnded
	log.Info().Str("module", "app.calls").Str("session", string(id)).Msg("ring timeout")
	return s, true
}

func (c *Calls) SessionOf(who domain.Identity) (domain.CallSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byIdentity[who]
	if !ok {
		return domain.CallSession{}, false
	}
	return c.sessions[id].session, true
}

func (c *Calls) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Calls) removeLocked(e *callEntry) {
	delete(c.sessions, e.session.ID)
	if c.byIdentity[e.session.Caller] == e.session.ID {
		delete(c.byIdentity, e.session.Caller)
	}
	if c.byIdentity[e.session.Callee] == e.session.ID {
		delete(c.byIdentity, e.session.Callee)
	}
}
