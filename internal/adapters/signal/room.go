package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/QinjianZheng/who-is-my-friend/internal/core"
)

func (ctl *Controller) handleCreate(connID string, conn *WsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		Name      string `json:"name"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, core.ErrInvalidName)
		return
	}
	if err := ctl.Orch.CreateRoom(connID, conn, p.Name, p.SessionID); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleJoin(connID string, conn *WsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		Code      string `json:"code"`
		Name      string `json:"name"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, core.ErrInvalidName)
		return
	}
	if err := ctl.Orch.JoinRoom(connID, conn, p.Code, p.Name, p.SessionID); err != nil {
		ctl.sendError(conn, err)
	}
}

// handleRestore never surfaces an error: it fires automatically on every
// reconnect attempt, and a stale token just means there is nothing to restore.
func (ctl *Controller) handleRestore(connID string, conn *WsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		return
	}
	if !ctl.Orch.Restore(connID, conn, p.SessionID) {
		log.Info().Str("module", "signal").Str("conn", connID).Msg("stale session token dropped")
	}
}

func (ctl *Controller) handleLeave(connID string) {
	ctl.Orch.Leave(connID)
}

func (ctl *Controller) handlePing(conn *WsConn) {
	_ = conn.TrySend(core.Encode(core.Notice{Type: core.EventPong}))
}
