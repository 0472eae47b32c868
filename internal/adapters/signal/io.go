package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
	"github.com/dkeye/Callwire/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			deadline := time.Now().Add(ctl.opts.WriteWait)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Info().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump handles one event at a time; the next frame is not read until
// the current handler has returned.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.Identity, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("id", string(id)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(id)
		c.Close()
		cancel()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})
	limiter := rate.NewLimiter(ctl.opts.EventRate, ctl.opts.EventBurst)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("id", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("id", string(id)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
			if !limiter.Allow() {
				ctl.sendError(c, "", domain.ErrRateLimited)
				continue
			}
			ctl.handleSignal(id, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(id domain.Identity, c *WsSignalConn, data []byte) {
	var msg core.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("id", string(id)).Msg("bad json")
		ctl.sendError(c, "", domain.Errorf(domain.CodeBadPayload, "bad json"))
		return
	}

	h, ok := handlers[msg.Event]
	if !ok {
		log.Warn().Str("module", "signal").Str("event", msg.Event).Msg("unknown event")
		ctl.sendError(c, msg.Event, domain.Errorf(domain.CodeUnknownEvent, "unknown event %q", msg.Event))
		return
	}
	metrics.EventsTotal.WithLabelValues(msg.Event).Inc()

	start := time.Now()
	err := h(ctl, id, c, msg.Data)
	metrics.EventDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		ctl.sendError(c, msg.Event, err)
	}
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, event string, err error) {
	code := domain.CodeOf(err)
	metrics.EventErrors.WithLabelValues(string(code)).Inc()
	msg := err.Error()
	if code == domain.CodeInternal {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("handler failed")
		msg = "internal error"
	}
	ctl.sendJSON(c, core.EvError, core.ErrorEvent{Code: code, Message: msg, Event: event})
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, event string, v any) {
	b, err := core.Encode(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		metrics.FramesDropped.WithLabelValues("backpressure").Inc()
	}
}
