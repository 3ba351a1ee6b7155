package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// InsertAuditLogParams carries one audit record.
type InsertAuditLogParams struct {
	ActorKind    string
	ActorID      pgtype.Text
	Action       string
	ResourceType string
	ResourceID   pgtype.Text
	Method       string
	Path         string
	Status       int32
	IP           pgtype.Text
	RequestID    pgtype.Text
	Metadata     []byte
}

// InsertAuditLog writes an audit record.
func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, `INSERT INTO audit_logs
	(actor_kind, actor_id, action, resource_type, resource_id, method, path, status, ip, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb)`,
		arg.ActorKind, arg.ActorID, arg.Action, arg.ResourceType, arg.ResourceID, arg.Method, arg.Path,
		arg.Status, arg.IP, arg.RequestID, arg.Metadata)
	return err
}

// ListAuditLogs pages audit records, newest first.
func (q *Queries) ListAuditLogs(ctx context.Context, limit, offset int32) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, `SELECT id, actor_kind, actor_id, action, resource_type, resource_id, method, path,
	status, ip, request_id, metadata, created_at
FROM audit_logs ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (AuditLog, error) {
		var l AuditLog
		err := r.Scan(&l.ID, &l.ActorKind, &l.ActorID, &l.Action, &l.ResourceType, &l.ResourceID, &l.Method,
			&l.Path, &l.Status, &l.IP, &l.RequestID, &l.Metadata, &l.CreatedAt)
		return l, err
	})
}
