package signal

import (
	"encoding/json"

	"github.com/dkeye/Callwire/internal/domain"
)

// handleRelaySignal forwards an offer, answer or candidate to the call
// peer. The payload is kept as raw JSON and never inspected.
func handleRelaySignal(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[signalPayload](data)
	if err != nil {
		return err
	}
	kind, err := domain.ParseSignalKind(p.Type)
	if err != nil {
		return err
	}
	if p.TargetID == "" {
		return domain.Errorf(domain.CodeValidation, "targetId required")
	}
	if len(p.Payload) == 0 {
		return domain.Errorf(domain.CodeValidation, "payload required")
	}
	if len(p.Payload) > domain.MaxSignalPayload {
		return domain.ErrSignalTooLarge
	}
	return ctl.Orch.Signal(id, domain.Identity(p.TargetID), kind, p.Payload)
}
