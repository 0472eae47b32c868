package signal

import (
	"encoding/json"

	"github.com/dkeye/Callwire/internal/domain"
	"github.com/rs/zerolog/log"
)

func handleCreateRoom(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[createRoomPayload](data)
	if err != nil {
		return err
	}
	room, err := ctl.Orch.CreateRoom(id, p.Name)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("id", string(id)).Str("room_id", string(room.ID)).Msg("create room")
	return nil
}

func handleJoinRoom(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[roomPayload](data)
	if err != nil {
		return err
	}
	if p.RoomID == "" {
		return domain.Errorf(domain.CodeValidation, "roomId required")
	}
	log.Info().Str("module", "signal").Str("id", string(id)).Str("room_id", p.RoomID).Msg("join")
	return ctl.Orch.JoinRoom(id, domain.RoomID(p.RoomID))
}

// handleLeaveRoom: выход из комнаты, соединение при этом не рвётся.
func handleLeaveRoom(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, data json.RawMessage) error {
	p, err := decode[roomPayload](data)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("id", string(id)).Str("room_id", p.RoomID).Msg("leave")
	return ctl.Orch.LeaveRoom(id, domain.RoomID(p.RoomID))
}

func handleRequestGroups(ctl *SignalWSController, id domain.Identity, _ *WsSignalConn, _ json.RawMessage) error {
	return ctl.Orch.RequestGroups(id)
}
