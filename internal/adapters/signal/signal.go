package signal

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Callwire/internal/app/orch"
	"github.com/dkeye/Callwire/internal/core"
	"github.com/dkeye/Callwire/internal/domain"
	"github.com/dkeye/Callwire/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Options struct {
	RequireIdentity bool
	AllowedOrigins  []string
	AdmitLimit      int
	AdmitWindow     time.Duration
	EventRate       rate.Limit
	EventBurst      int
	SendBuffer      int
	ReadLimit       int64
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
}

func DefaultOptions() Options {
	return Options{
		AdmitLimit:  100,
		AdmitWindow: time.Minute,
		EventRate:   50,
		EventBurst:  100,
		SendBuffer:  64,
		ReadLimit:   1 << 20,
		PingPeriod:  25 * time.Second,
		PongWait:    60 * time.Second,
		WriteWait:   5 * time.Second,
	}
}

// SignalWSController is the connection gateway: it admits connections,
// binds identities and dispatches inbound events to the orchestrator.
type SignalWSController struct {
	Orch     *orch.Orchestrator
	opts     Options
	limiter  *AdmissionLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	ctl := &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewAdmissionLimiter(opts.AdmitLimit, opts.AdmitWindow),
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: ctl.checkOrigin}
	return ctl
}

// Limiter exposes the admission limiter so the caller can run its sweeper.
func (ctl *SignalWSController) Limiter() *AdmissionLimiter { return ctl.limiter }

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Admit decides whether a handshake may proceed and which identity it
// gets. Nothing is mutated when the identity requirement fails.
func (ctl *SignalWSController) Admit(source, declared, token string) (domain.Identity, error) {
	if ctl.opts.RequireIdentity && declared == "" {
		metrics.AdmissionsRejected.WithLabelValues("auth").Inc()
		return "", domain.ErrIdentityEmpty
	}
	if !ctl.limiter.Allow(source) {
		metrics.AdmissionsRejected.WithLabelValues("rate_limited").Inc()
		return "", domain.ErrRateLimited
	}

	if declared != "" {
		id, err := domain.ValidateIdentity(declared)
		if err != nil {
			metrics.AdmissionsRejected.WithLabelValues("auth").Inc()
			return "", err
		}
		if ctl.Orch.Presence.Connected(id) {
			metrics.AdmissionsRejected.WithLabelValues("auth").Inc()
			return "", domain.ErrIdentityInUse
		}
		return id, nil
	}
	if id, err := domain.ValidateIdentity(token); err == nil && !ctl.Orch.Presence.Connected(id) {
		return id, nil
	}
	return domain.Identity(uuid.NewString()), nil
}

func admitStatus(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeAuth:
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// checkOrigin accepts requests without an Origin header, any origin when the
// allowlist is empty or holds "*", and otherwise only listed origins.
// A refused origin makes the upgrade answer 403.
func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(ctl.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range ctl.opts.AllowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	log.Warn().Str("module", "signal").Str("origin", origin).Msg("origin refused")
	return false
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	id, err := ctl.Admit(c.ClientIP(), c.Query("id"), c.GetString("client_token"))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("source", c.ClientIP()).Msg("admission refused")
		c.AbortWithStatusJSON(admitStatus(err), core.ErrorEvent{Code: domain.CodeOf(err), Message: err.Error()})
		return
	}
	log.Info().Str("module", "signal").Str("id", string(id)).Msg("new WS connection")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := ctl.Orch.Connect(id, conn); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("id", string(id)).Msg("bind refused")
		frame, _ := core.Encode(core.EvError, core.ErrorEvent{Code: domain.CodeOf(err), Message: err.Error()})
		_ = ws.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait))
		_ = ws.WriteMessage(websocket.TextMessage, frame)
		conn.Close()
		cancel()
		return
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
