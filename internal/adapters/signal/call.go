package signal

import (
	"encoding/json"

	"github.com/dkeye/Callwire/internal/domain"
)

func handleCallInvite(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[callInvitePayload](data)
	if err != nil {
		return err
	}
	callType, err := domain.ParseCallType(p.CallType)
	if err != nil {
		return err
	}
	_, err = ctl.Orch.Invite(id, domain.Identity(p.TargetID), callType, p.CallerName)
	return err
}

func handleCallResponse(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[callResponsePayload](data)
	if err != nil {
		return err
	}
	decision, err := domain.ParseDecision(p.Decision)
	if err != nil {
		return err
	}
	return ctl.Orch.Respond(id, domain.Identity(p.CallerID), decision)
}

func handleEndCall(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, _ json.RawMessage) error {
	return ctl.Orch.EndCall(id)
}
