package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createWorkspace = `-- name: CreateWorkspace :one
INSERT INTO wsa.workspaces (id, name, owner_name, template_id)
VALUES ($1, $2, $3, $4)
RETURNING id, name, owner_name, template_id, dormant_at, deleted, created_at, updated_at
`

type CreateWorkspaceParams struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnerName  string `json:"owner_name"`
	TemplateID string `json:"template_id"`
}

func (q *Queries) CreateWorkspace(ctx context.Context, arg CreateWorkspaceParams) (WsaWorkspace, error) {
	row := q.db.QueryRow(ctx, createWorkspace,
		arg.ID,
		arg.Name,
		arg.OwnerName,
		arg.TemplateID,
	)
	var i WsaWorkspace
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.OwnerName,
		&i.TemplateID,
		&i.DormantAt,
		&i.Deleted,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getWorkspace = `-- name: GetWorkspace :one
SELECT id, name, owner_name, template_id, dormant_at, deleted, created_at, updated_at
FROM wsa.workspaces
WHERE id = $1
`

func (q *Queries) GetWorkspace(ctx context.Context, id string) (WsaWorkspace, error) {
	row := q.db.QueryRow(ctx, getWorkspace, id)
	var i WsaWorkspace
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.OwnerName,
		&i.TemplateID,
		&i.DormantAt,
		&i.Deleted,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listWorkspaces = `-- name: ListWorkspaces :many
SELECT id, name, owner_name, template_id, dormant_at, deleted, created_at, updated_at
FROM wsa.workspaces
WHERE NOT deleted
  AND ($2::timestamptz IS NULL OR created_at < $2)
ORDER BY created_at DESC
LIMIT $1
`

type ListWorkspacesParams struct {
	Limit  int32              `json:"limit"`
	Cursor pgtype.Timestamptz `json:"cursor"`
}

func (q *Queries) ListWorkspaces(ctx context.Context, arg ListWorkspacesParams) ([]WsaWorkspace, error) {
	rows, err := q.db.Query(ctx, listWorkspaces, arg.Limit, arg.Cursor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WsaWorkspace
	for rows.Next() {
		var i WsaWorkspace
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.OwnerName,
			&i.TemplateID,
			&i.DormantAt,
			&i.Deleted,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const setWorkspaceDormancy = `-- name: SetWorkspaceDormancy :execrows
UPDATE wsa.workspaces
SET dormant_at = $2, updated_at = now()
WHERE id = $1 AND NOT deleted
`

type SetWorkspaceDormancyParams struct {
	ID        string             `json:"id"`
	DormantAt pgtype.Timestamptz `json:"dormant_at"`
}

func (q *Queries) SetWorkspaceDormancy(ctx context.Context, arg SetWorkspaceDormancyParams) (int64, error) {
	result, err := q.db.Exec(ctx, setWorkspaceDormancy, arg.ID, arg.DormantAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const markWorkspaceDeleted = `-- name: MarkWorkspaceDeleted :exec
UPDATE wsa.workspaces
SET deleted = true, updated_at = now()
WHERE id = $1
`

func (q *Queries) MarkWorkspaceDeleted(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, markWorkspaceDeleted, id)
	return err
}

const touchWorkspace = `-- name: TouchWorkspace :exec
UPDATE wsa.workspaces SET updated_at = now() WHERE id = $1
`

func (q *Queries) TouchWorkspace(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, touchWorkspace, id)
	return err
}

const acquireWorkspaceLock = `-- name: AcquireWorkspaceLock :exec
SELECT pg_advisory_xact_lock(hashtext($1))
`

func (q *Queries) AcquireWorkspaceLock(ctx context.Context, workspaceID string) error {
	_, err := q.db.Exec(ctx, acquireWorkspaceLock, workspaceID)
	return err
}
