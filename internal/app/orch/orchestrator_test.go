package orch

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Callwire/internal/app"
	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   []core.Message
	full   bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrClosed
	}
	if f.full {
		return core.ErrBackpressure
	}
	var m core.Message
	if err := json.Unmarshal(fr, &m); err != nil {
		return err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) events(name string) []core.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Message
	for _, m := range f.msgs {
		if m.Event == name {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = nil
}

func decodeData[T any](t *testing.T, m core.Message) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(m.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", m.Event, err)
	}
	return v
}

func newTestOrch(opts Options) *Orchestrator { return New(opts) }

func join(t *testing.T, o *Orchestrator, id domain.Identity, name string) *fakeConn {
	t.Helper()
	c := &fakeConn{}
	if err := o.Connect(id, c); err != nil {
		t.Fatalf("connect %s: %v", id, err)
	}
	if err := o.Register(id, name); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return c
}

func TestRegister_AnnouncesPresence(t *testing.T) {
	o := newTestOrch(Options{})
	a := join(t, o, "a", "alice")
	b := join(t, o, "b", "bob")

	if got := len(b.events(core.EvRegistered)); got != 1 {
		t.Fatalf("registered events = %d", got)
	}
	list := b.events(core.EvUserList)
	if len(list) != 1 {
		t.Fatalf("userList events = %d", len(list))
	}
	users := decodeData[core.UserList](t, list[0]).Users
	if len(users) != 2 || users[0].ID != "a" || users[1].ID != "b" {
		t.Fatalf("unexpected user list %+v", users)
	}
	pres := a.events(core.EvPresence)
	if len(pres) != 1 || decodeData[core.PresenceChanged](t, pres[0]).User.ID != "b" {
		t.Fatalf("a should learn about b once, got %+v", pres)
	}
	if len(b.events(core.EvPresence)) != 0 {
		t.Fatalf("b should not hear its own presence")
	}
}

func TestOperationsRequireRegistration(t *testing.T) {
	o := newTestOrch(Options{})
	if err := o.Connect("a", &fakeConn{}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	checks := map[string]error{
		"requestUsers": o.RequestUsers("a"),
		"joinRoom":     o.JoinRoom("a", "r"),
		"endCall":      o.EndCall("a"),
		"chat":         o.Chat("a", "b", "", "hi"),
	}
	for name, err := range checks {
		if !errors.Is(err, domain.ErrNotRegistered) {
			t.Fatalf("%s: expected not registered, got %v", name, err)
		}
	}
}

func TestConnect_IdentityInUse(t *testing.T) {
	o := newTestOrch(Options{})
	join(t, o, "a", "alice")
	if err := o.Connect("a", &fakeConn{}); !errors.Is(err, domain.ErrIdentityInUse) {
		t.Fatalf("expected identity in use, got %v", err)
	}
}

func TestCallFlow_EndToEnd(t *testing.T) {
	o := newTestOrch(Options{})
	a := join(t, o, "a", "alice")
	b := join(t, o, "b", "bob")

	if _, err := o.Invite("a", "b", domain.CallVideo, ""); err != nil {
		t.Fatalf("invite: %v", err)
	}
	in := b.events(core.EvIncomingCall)
	if len(in) != 1 {
		t.Fatalf("incomingCall events = %d", len(in))
	}
	ic := decodeData[core.IncomingCall](t, in[0])
	if ic.CallerID != "a" || ic.CallerName != "alice" || ic.CallType != domain.CallVideo {
		t.Fatalf("unexpected incomingCall %+v", ic)
	}
	if len(a.events(core.EvCallRinging)) != 1 {
		t.Fatalf("caller should get callRinging")
	}

	if err := o.Respond("b", "a", domain.DecisionAccept); err != nil {
		t.Fatalf("respond: %v", err)
	}
	acc := a.events(core.EvCallAccepted)
	if len(acc) != 1 || decodeData[core.CallAccepted](t, acc[0]).CalleeID != "b" {
		t.Fatalf("unexpected callAccepted %+v", acc)
	}

	payload := json.RawMessage(`{"sdp":"v=0\r\n"}`)
	if err := o.Signal("a", "b", domain.SignalOffer, payload); err != nil {
		t.Fatalf("signal: %v", err)
	}
	sigs := b.events(core.EvSignal)
	if len(sigs) != 1 {
		t.Fatalf("signal events = %d", len(sigs))
	}
	sig := decodeData[core.Signal](t, sigs[0])
	if sig.SenderID != "a" || sig.Type != domain.SignalOffer {
		t.Fatalf("unexpected signal %+v", sig)
	}
	var got, want map[string]string
	_ = json.Unmarshal(sig.Payload, &got)
	_ = json.Unmarshal(payload, &want)
	if got["sdp"] != want["sdp"] {
		t.Fatalf("payload altered: %s", sig.Payload)
	}

	if err := o.Signal("a", "b", domain.SignalCandidate, json.RawMessage(`"X"`)); err != nil {
		t.Fatalf("candidate: %v", err)
	}
	sigs = b.events(core.EvSignal)
	if cand := decodeData[core.Signal](t, sigs[len(sigs)-1]); cand.Type != domain.SignalCandidate || string(cand.Payload) != `"X"` {
		t.Fatalf("unexpected candidate %+v", cand)
	}

	if err := o.EndCall("a"); err != nil {
		t.Fatalf("end: %v", err)
	}
	ended := b.events(core.EvCallEnded)
	if len(ended) != 1 {
		t.Fatalf("callEnded events = %d", len(ended))
	}
	if ce := decodeData[core.CallEnded](t, ended[0]); ce.PeerID != "a" || ce.Reason != domain.EndHangup {
		t.Fatalf("unexpected callEnded %+v", ce)
	}
	if err := o.Signal("b", "a", domain.SignalAnswer, payload); !errors.Is(err, domain.ErrNotInCall) {
		t.Fatalf("signal after hangup: %v", err)
	}
	if err := o.EndCall("a"); err != nil {
		t.Fatalf("second end: %v", err)
	}
	if len(b.events(core.EvCallEnded)) != 1 {
		t.Fatalf("second hangup should not notify again")
	}
}

func TestRespond_Reject(t *testing.T) {
	o := newTestOrch(Options{})
	a := join(t, o, "a", "alice")
	join(t, o, "b", "bob")
	_, _ = o.Invite("a", "b", domain.CallAudio, "")
	if err := o.Respond("b", "a", domain.DecisionReject); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(a.events(core.EvCallRejected)) != 1 {
		t.Fatalf("caller should get callRejected")
	}
	if o.Calls.Count() != 0 {
		t.Fatalf("rejected call still tracked")
	}
}

func TestSignal_OutsiderDropped(t *testing.T) {
	o := newTestOrch(Options{})
	join(t, o, "a", "alice")
	b := join(t, o, "b", "bob")
	join(t, o, "c", "carol")
	_, _ = o.Invite("a", "b", domain.CallAudio, "")

	if err := o.Signal("c", "b", domain.SignalCandidate, json.RawMessage(`{}`)); !errors.Is(err, domain.ErrNotInCall) {
		t.Fatalf("expected not in call, got %v", err)
	}
	if len(b.events(core.EvSignal)) != 0 {
		t.Fatalf("outsider signal was delivered")
	}
}

func TestDisconnect_EndsCallThenPresence(t *testing.T) {
	o := newTestOrch(Options{})
	a := join(t, o, "a", "alice")
	join(t, o, "b", "bob")
	_, _ = o.Invite("a", "b", domain.CallAudio, "")
	_ = o.Respond("b", "a", domain.DecisionAccept)
	a.reset()

	o.OnDisconnect("b")
	o.OnDisconnect("b")

	a.mu.Lock()
	msgs := append([]core.Message(nil), a.msgs...)
	a.mu.Unlock()
	if len(msgs) != 2 {
		t.Fatalf("expected callEnded then presence, got %+v", msgs)
	}
	if msgs[0].Event != core.EvCallEnded || msgs[1].Event != core.EvPresence {
		t.Fatalf("wrong order: %s, %s", msgs[0].Event, msgs[1].Event)
	}
	if ce := decodeData[core.CallEnded](t, msgs[0]); ce.Reason != domain.EndDisconnect || ce.PeerID != "b" {
		t.Fatalf("unexpected callEnded %+v", ce)
	}
	if pc := decodeData[core.PresenceChanged](t, msgs[1]); pc.User.Status != domain.StatusOffline {
		t.Fatalf("unexpected presence %+v", pc)
	}
	if o.Presence.Connected("b") || o.Calls.Count() != 0 {
		t.Fatalf("state not reconciled")
	}
	if err := o.Signal("a", "b", domain.SignalOffer, json.RawMessage(`{}`)); !errors.Is(err, domain.ErrNotInCall) {
		t.Fatalf("signal after disconnect: %v", err)
	}
	// Identity is free again.
	join(t, o, "b", "bob")
}

func TestRooms_MembershipBroadcasts(t *testing.T) {
	o := newTestOrch(Options{})
	a := join(t, o, "a", "alice")
	b := join(t, o, "b", "bob")
	c := join(t, o, "c", "carol")

	room, err := o.CreateRoom("a", "standup")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(a.events(core.EvGroupCreated)) != 1 {
		t.Fatalf("creator should get groupCreated")
	}
	if err := o.JoinRoom("b", room.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(a.events(core.EvGroupMembers)) != 1 || len(b.events(core.EvGroupMembers)) != 1 {
		t.Fatalf("members should hear about join")
	}
	if len(c.events(core.EvGroupMembers)) != 0 {
		t.Fatalf("outsider heard about join")
	}

	if err := o.Chat("a", "", room.ID, "hello"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(b.events(core.EvChat)) != 1 || len(a.events(core.EvChat)) != 0 || len(c.events(core.EvChat)) != 0 {
		t.Fatalf("room chat reached the wrong audience")
	}
	if err := o.Chat("c", "", room.ID, "hi"); !errors.Is(err, domain.ErrNotMember) {
		t.Fatalf("outsider chat: %v", err)
	}

	if err := o.LeaveRoom("b", room.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(b.events(core.EvGroupLeft)) != 1 {
		t.Fatalf("leaver should get groupLeft")
	}
	members := a.events(core.EvGroupMembers)
	last := decodeData[core.GroupEvent](t, members[len(members)-1]).Room
	if len(last.Members) != 1 || last.Members[0] != "a" {
		t.Fatalf("remaining members = %v", last.Members)
	}

	o.OnDisconnect("a")
	if o.Rooms.Count() != 0 {
		t.Fatalf("empty room should dissolve")
	}
}

func TestTyping_ToPeer(t *testing.T) {
	o := newTestOrch(Options{})
	join(t, o, "a", "alice")
	b := join(t, o, "b", "bob")
	if err := o.Typing("a", "b", "", true); err != nil {
		t.Fatalf("typing: %v", err)
	}
	ev := b.events(core.EvTyping)
	if len(ev) != 1 || !decodeData[core.Typing](t, ev[0]).IsTyping {
		t.Fatalf("unexpected typing events %+v", ev)
	}
	if rec, _ := o.Presence.Lookup("a"); !rec.Typing {
		t.Fatalf("typing flag not recorded")
	}
	if err := o.Typing("a", "", "", true); !errors.Is(err, domain.ErrMissingTarget) {
		t.Fatalf("expected missing target, got %v", err)
	}
}

func TestRingTimeout_NotifiesBothParties(t *testing.T) {
	o := newTestOrch(Options{RingTimeout: 20 * time.Millisecond})
	a := join(t, o, "a", "alice")
	b := join(t, o, "b", "bob")
	_, _ = o.Invite("a", "b", domain.CallAudio, "")

	deadline := time.Now().Add(time.Second)
	for len(a.events(core.EvCallEnded)) == 0 || len(b.events(core.EvCallEnded)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ring timeout not delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ce := decodeData[core.CallEnded](t, a.events(core.EvCallEnded)[0]); ce.Reason != domain.EndTimeout {
		t.Fatalf("reason = %s", ce.Reason)
	}
	if o.Calls.Count() != 0 {
		t.Fatalf("expired call still tracked")
	}
}

func TestPresenceScopeRoom(t *testing.T) {
	o := newTestOrch(Options{Scope: ScopeRoom})
	a := join(t, o, "a", "alice")
	join(t, o, "b", "bob")
	c := join(t, o, "c", "carol")
	room, _ := o.CreateRoom("a", "pair")
	_ = o.JoinRoom("b", room.ID)

	if err := o.SetStatus("b", domain.StatusOffline); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if len(a.events(core.EvPresence)) != 1 {
		t.Fatalf("room mate should hear status change")
	}
	if len(c.events(core.EvPresence)) != 0 {
		t.Fatalf("non member heard status change")
	}
}

func TestBackpressure_Policies(t *testing.T) {
	for _, tc := range []struct {
		name       string
		policy     app.Policy
		wantClosed bool
	}{
		{"drop", app.DropPolicy{}, false},
		{"kick", app.KickPolicy{}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOrch(Options{Policy: tc.policy})
			join(t, o, "a", "alice")
			b := join(t, o, "b", "bob")
			b.mu.Lock()
			b.full = true
			b.mu.Unlock()

			if ok := o.Send("b", core.EvChat, core.Chat{Text: "x"}); ok {
				t.Fatalf("send to a full queue should fail")
			}
			b.mu.Lock()
			closed := b.closed
			b.mu.Unlock()
			if closed != tc.wantClosed {
				t.Fatalf("closed = %v, want %v", closed, tc.wantClosed)
			}
		})
	}
}

func TestAcceptRacingDisconnect(t *testing.T) {
	for i := 0; i < 200; i++ {
		o := newTestOrch(Options{})
		join(t, o, "a", "alice")
		b := join(t, o, "b", "bob")
		if _, err := o.Invite("a", "b", domain.CallAudio, ""); err != nil {
			t.Fatalf("invite: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		var respondErr error
		go func() {
			defer wg.Done()
			respondErr = o.Respond("b", "a", domain.DecisionAccept)
		}()
		go func() {
			defer wg.Done()
			o.OnDisconnect("a")
		}()
		wg.Wait()

		if respondErr != nil && !errors.Is(respondErr, domain.ErrInvalidSession) {
			t.Fatalf("iteration %d: respond: %v", i, respondErr)
		}
		if n := o.Calls.Count(); n != 0 {
			t.Fatalf("iteration %d: %d sessions survived the disconnect", i, n)
		}
		if _, ok := o.Calls.SessionOf("b"); ok {
			t.Fatalf("iteration %d: callee still indexed", i)
		}
		if got := len(b.events(core.EvCallEnded)); got != 1 {
			t.Fatalf("iteration %d: callee got %d callEnded events", i, got)
		}
	}
}

func TestAcceptRacingRingTimeout(t *testing.T) {
	for i := 0; i < 50; i++ {
		o := newTestOrch(Options{RingTimeout: time.Nanosecond})
		a := join(t, o, "a", "alice")
		join(t, o, "b", "bob")
		if _, err := o.Invite("a", "b", domain.CallAudio, ""); err != nil {
			t.Fatalf("invite: %v", err)
		}
		err := o.Respond("b", "a", domain.DecisionAccept)
		// Let a timer that lost the race run its no-op.
		time.Sleep(2 * time.Millisecond)

		ended := a.events(core.EvCallEnded)
		accepted := a.events(core.EvCallAccepted)
		switch {
		case err == nil:
			s, ok := o.Calls.SessionOf("a")
			if !ok || s.State != domain.CallActive || o.Calls.Count() != 1 {
				t.Fatalf("iteration %d: accepted call not active: %+v", i, s)
			}
			if len(ended) != 0 || len(accepted) != 1 {
				t.Fatalf("iteration %d: mixed outcome, ended=%d accepted=%d", i, len(ended), len(accepted))
			}
		case errors.Is(err, domain.ErrInvalidSession):
			if o.Calls.Count() != 0 {
				t.Fatalf("iteration %d: expired call still tracked", i)
			}
			if len(ended) != 1 || len(accepted) != 0 {
				t.Fatalf("iteration %d: mixed outcome, ended=%d accepted=%d", i, len(ended), len(accepted))
			}
			if ce := decodeData[core.CallEnded](t, ended[0]); ce.Reason != domain.EndTimeout {
				t.Fatalf("iteration %d: reason = %s", i, ce.Reason)
			}
		default:
			t.Fatalf("iteration %d: respond: %v", i, err)
		}
	}
}
