package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAudit = `-- name: InsertAudit :one
INSERT INTO wsa.audit_events (workspace_id, actor, action, request_id, build_id, payload)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING event_id
`

type InsertAuditParams struct {
	WorkspaceID pgtype.Text `json:"workspace_id"`
	Actor       []byte      `json:"actor"`
	Action      string      `json:"action"`
	RequestID   pgtype.Text `json:"request_id"`
	BuildID     pgtype.Text `json:"build_id"`
	Payload     []byte      `json:"payload"`
}

func (q *Queries) InsertAudit(ctx context.Context, arg InsertAuditParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertAudit,
		arg.WorkspaceID,
		arg.Actor,
		arg.Action,
		arg.RequestID,
		arg.BuildID,
		arg.Payload,
	)
	var event_id int64
	err := row.Scan(&event_id)
	return event_id, err
}

const listAuditEvents = `-- name: ListAuditEvents :many
SELECT event_id, ts, workspace_id, actor, action, request_id, build_id, payload
FROM wsa.audit_events
WHERE workspace_id = $1
ORDER BY event_id
`

func (q *Queries) ListAuditEvents(ctx context.Context, workspaceID pgtype.Text) ([]WsaAuditEvent, error) {
	rows, err := q.db.Query(ctx, listAuditEvents, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WsaAuditEvent
	for rows.Next() {
		var i WsaAuditEvent
		if err := rows.Scan(
			&i.EventID,
			&i.Ts,
			&i.WorkspaceID,
			&i.Actor,
			&i.Action,
			&i.RequestID,
			&i.BuildID,
			&i.Payload,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
