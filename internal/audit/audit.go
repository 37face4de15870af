package audit

import (
	"context"

	"github.com/huiqicai/hci-social-backend/pkg/log"
)

// Audit actions for the chat subsystem.
const (
	ActionCreateRoom     = "chat.room.create"
	ActionReconcileRooms = "chat.room.reconcile"
	ActionSendMessage    = "chat.message.send"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, tenantID string, userID int64, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldTenantID, tenantID).
		Int64(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, tenantID string, userID int64, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldTenantID, tenantID).
		Int64(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
