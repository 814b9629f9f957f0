package signal

import (
	"encoding/json"

	"github.com/QinjianZheng/who-is-my-friend/internal/core"
	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

func (ctl *Controller) handleSelectGame(connID string, conn *WsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Code   string `json:"code"`
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.GameID == "" {
		ctl.sendError(conn, core.ErrUnknownGame)
		return
	}
	if err := ctl.Orch.SelectGame(connID, domain.GameID(p.GameID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleStart(connID string, conn *WsConn) {
	if err := ctl.Orch.Start(connID); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleSubmitRole(connID string, conn *WsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Code   string `json:"code"`
		RoleID string `json:"roleId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoleID == "" {
		ctl.sendError(conn, core.ErrUnknownRole)
		return
	}
	if err := ctl.Orch.SubmitRole(connID, p.RoleID); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleRevealConfirm(connID string, conn *WsConn) {
	if err := ctl.Orch.ConfirmReveal(connID); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleReset(connID string, conn *WsConn) {
	if err := ctl.Orch.Reset(connID); err != nil {
		ctl.sendError(conn, err)
	}
}
