package signal

import (
	"encoding/json"

	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
)

func handlePing(ctl *SignalWSController, _ domain.Identity, conn *WsSignalConn, _ json.RawMessage) error {
	ctl.sendJSON(conn, core.EvPong, nil)
	return nil
}
