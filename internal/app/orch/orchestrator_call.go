package orch

import (
	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
	"github.com/dkeye/Callwire/internal/metrics"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) Invite(caller, callee domain.Identity, callType domain.CallType, callerName string) (domain.CallSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(caller); err != nil {
		return domain.CallSession{}, err
	}
	if callerName == "" {
		rec, _ := o.Presence.Lookup(caller)
		callerName = rec.DisplayName
	} else {
		name, err := domain.NormalizeDisplayName(callerName)
		if err != nil {
			return domain.CallSession{}, err
		}
		callerName = name
	}

	s, err := o.Calls.Invite(caller, callee, callType)
	if err != nil {
		return domain.CallSession{}, err
	}
	metrics.CallsStarted.WithLabelValues(string(s.Type)).Inc()
	o.Send(callee, core.EvIncomingCall, core.IncomingCall{
		SessionID:  s.ID,
		CallerID:   caller,
		CallerName: callerName,
		CallType:   s.Type,
	})
	o.Send(caller, core.EvCallRinging, core.CallRinging{SessionID: s.ID, TargetID: callee, CallType: s.Type})
	return s, nil
}

func (o *Orchestrator) Respond(responder, caller domain.Identity, decision domain.Decision) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(responder); err != nil {
		return err
	}
	s, err := o.Calls.Respond(responder, caller, decision)
	if err != nil {
		return err
	}
	if s.State == domain.CallActive {
		o.Send(caller, core.EvCallAccepted, core.CallAccepted{SessionID: s.ID, CalleeID: responder, CallType: s.Type})
		return nil
	}
	metrics.CallsEnded.WithLabelValues("rejected").Inc()
	o.Send(caller, core.EvCallRejected, core.CallRejected{SessionID: s.ID, CalleeID: responder})
	return nil
}

// EndCall hangs up the caller's session, if any. No session is not an error.
func (o *Orchestrator) EndCall(id domain.Identity) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireRegistered(id); err != nil {
		return err
	}
	o.endCallLocked(id, domain.EndHangup)
	return nil
}

func (o *Orchestrator) endCallLocked(id domain.Identity, reason domain.EndReason) {
	s, peer, ok := o.Calls.End(id)
	if !ok {
		return
	}
	metrics.CallsEnded.WithLabelValues(string(reason)).Inc()
	o.Send(peer, core.EvCallEnded, core.CallEnded{SessionID: s.ID, PeerID: id, Reason: reason})
}

func (o *Orchestrator) onRingTimeout(callID domain.CallID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.Calls.Expire(callID)
	if !ok {
		return
	}
	log.Info().Str("module", "orch").Str("session", string(callID)).Msg("call unanswered")
	metrics.CallsEnded.WithLabelValues(string(domain.EndTimeout)).Inc()
	o.Send(s.Caller, core.EvCallEnded, core.CallEnded{SessionID: s.ID, PeerID: s.Callee, Reason: domain.EndTimeout})
	o.Send(s.Callee, core.EvCallEnded, core.CallEnded{SessionID: s.ID, PeerID: s.Caller, Reason: domain.EndTimeout})
}
