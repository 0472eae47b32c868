package signal

import (
	"encoding/json"

	"github.com/dkeye/Callwire/internal/domain"
	"github.com/rs/zerolog/log"
)

func handleRegister(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[registerPayload](data)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("id", string(id)).Str("name", p.DisplayName).Msg("register")
	return ctl.Orch.Register(id, p.DisplayName)
}

func handleRequestUsers(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, _ json.RawMessage) error {
	return ctl.Orch.RequestUsers(id)
}

func handleSetStatus(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[statusPayload](data)
	if err != nil {
		return err
	}
	status, err := domain.ParseStatus(p.Status)
	if err != nil {
		return err
	}
	return ctl.Orch.SetStatus(id, status)
}

func handleTyping(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[typingPayload](data)
	if err != nil {
		return err
	}
	return ctl.Orch.Typing(id, domain.Identity(p.TargetID), domain.RoomID(p.RoomID), p.IsTyping)
}

func handleChat(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[chatPayload](data)
	if err != nil {
		return err
	}
	return ctl.Orch.Chat(id, domain.Identity(p.TargetID), domain.RoomID(p.RoomID), p.Text)
}
