package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/QinjianZheng/who-is-my-friend/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
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

func (ctl *Controller) readPump(ctx context.Context, connID string, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", connID).Msg("readPump closing")
		ctl.Orch.OnDisconnect(connID)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.dispatch(connID, c, data)
		}
	}
}

func (ctl *Controller) dispatch(connID string, c *WsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", connID).Msg("bad json")
		return
	}

	switch env.Type {
	case "session.restore":
		ctl.handleRestore(connID, c, data)
	case "room.create":
		ctl.handleCreate(connID, c, data)
	case "room.join":
		ctl.handleJoin(connID, c, data)
	case "room.leave":
		ctl.handleLeave(connID)
	case "room.selectGame":
		ctl.handleSelectGame(connID, c, data)
	case "room.start":
		ctl.handleStart(connID, c)
	case "room.reset":
		ctl.handleReset(connID, c)
	case "role.submit":
		ctl.handleSubmitRole(connID, c, data)
	case "room.revealConfirm":
		ctl.handleRevealConfirm(connID, c)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

// sendError reports a request failure to the sender only.
func (ctl *Controller) sendError(c *WsConn, err error) {
	frame := core.Encode(core.ErrorEvent{Type: core.EventError, Message: err.Error()})
	_ = c.TrySend(frame)
}
