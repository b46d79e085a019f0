package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const buildColumns = `id, workspace_id, build_number, template_version_id, transition, job_status, job_error,
       log_level, orphan, parameters, resources, idempotency_key, request_hash, created_at, started_at, completed_at`

func scanBuild(row interface{ Scan(...interface{}) error }) (WsaWorkspaceBuild, error) {
	var i WsaWorkspaceBuild
	err := row.Scan(
		&i.ID,
		&i.WorkspaceID,
		&i.BuildNumber,
		&i.TemplateVersionID,
		&i.Transition,
		&i.JobStatus,
		&i.JobError,
		&i.LogLevel,
		&i.Orphan,
		&i.Parameters,
		&i.Resources,
		&i.IdempotencyKey,
		&i.RequestHash,
		&i.CreatedAt,
		&i.StartedAt,
		&i.CompletedAt,
	)
	return i, err
}

const insertWorkspaceBuild = `-- name: InsertWorkspaceBuild :one
INSERT INTO wsa.workspace_builds (
    id, workspace_id, build_number, template_version_id, transition,
    log_level, orphan, parameters, idempotency_key, request_hash
)
VALUES (
    $1, $2,
    (SELECT COALESCE(MAX(build_number), 0) + 1 FROM wsa.workspace_builds WHERE workspace_id = $2),
    $3, $4, $5, $6, $7, $8, $9
)
RETURNING ` + buildColumns

type InsertWorkspaceBuildParams struct {
	ID                string      `json:"id"`
	WorkspaceID       string      `json:"workspace_id"`
	TemplateVersionID string      `json:"template_version_id"`
	Transition        string      `json:"transition"`
	LogLevel          string      `json:"log_level"`
	Orphan            bool        `json:"orphan"`
	Parameters        []byte      `json:"parameters"`
	IdempotencyKey    pgtype.Text `json:"idempotency_key"`
	RequestHash       pgtype.Text `json:"request_hash"`
}

// InsertWorkspaceBuild must run under the workspace lock so build numbers
// stay sequential.
func (q *Queries) InsertWorkspaceBuild(ctx context.Context, arg InsertWorkspaceBuildParams) (WsaWorkspaceBuild, error) {
	row := q.db.QueryRow(ctx, insertWorkspaceBuild,
		arg.ID,
		arg.WorkspaceID,
		arg.TemplateVersionID,
		arg.Transition,
		arg.LogLevel,
		arg.Orphan,
		arg.Parameters,
		arg.IdempotencyKey,
		arg.RequestHash,
	)
	return scanBuild(row)
}

const getWorkspaceBuild = `-- name: GetWorkspaceBuild :one
SELECT ` + buildColumns + `
FROM wsa.workspace_builds
WHERE id = $1
`

func (q *Queries) GetWorkspaceBuild(ctx context.Context, id string) (WsaWorkspaceBuild, error) {
	return scanBuild(q.db.QueryRow(ctx, getWorkspaceBuild, id))
}

const getLatestBuild = `-- name: GetLatestBuild :one
SELECT ` + buildColumns + `
FROM wsa.workspace_builds
WHERE workspace_id = $1
ORDER BY build_number DESC
LIMIT 1
`

func (q *Queries) GetLatestBuild(ctx context.Context, workspaceID string) (WsaWorkspaceBuild, error) {
	return scanBuild(q.db.QueryRow(ctx, getLatestBuild, workspaceID))
}

const getBuildByIdempotencyKey = `-- name: GetBuildByIdempotencyKey :one
SELECT ` + buildColumns + `
FROM wsa.workspace_builds
WHERE workspace_id = $1 AND idempotency_key = $2
`

type GetBuildByIdempotencyKeyParams struct {
	WorkspaceID    string      `json:"workspace_id"`
	IdempotencyKey pgtype.Text `json:"idempotency_key"`
}

func (q *Queries) GetBuildByIdempotencyKey(ctx context.Context, arg GetBuildByIdempotencyKeyParams) (WsaWorkspaceBuild, error) {
	return scanBuild(q.db.QueryRow(ctx, getBuildByIdempotencyKey, arg.WorkspaceID, arg.IdempotencyKey))
}

const listWorkspaceBuilds = `-- name: ListWorkspaceBuilds :many
SELECT ` + buildColumns + `
FROM wsa.workspace_builds
WHERE workspace_id = $1
  AND ($3::int IS NULL OR build_number < $3)
ORDER BY build_number DESC
LIMIT $2
`

type ListWorkspaceBuildsParams struct {
	WorkspaceID string      `json:"workspace_id"`
	Limit       int32       `json:"limit"`
	Before      pgtype.Int4 `json:"before"`
}

func (q *Queries) ListWorkspaceBuilds(ctx context.Context, arg ListWorkspaceBuildsParams) ([]WsaWorkspaceBuild, error) {
	rows, err := q.db.Query(ctx, listWorkspaceBuilds, arg.WorkspaceID, arg.Limit, arg.Before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WsaWorkspaceBuild
	for rows.Next() {
		i, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const dequeueBuild = `-- name: DequeueBuild :one
UPDATE wsa.workspace_builds
SET job_status = 'running', started_at = now()
WHERE id = (
    SELECT id FROM wsa.workspace_builds
    WHERE job_status = 'pending'
    ORDER BY created_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING ` + buildColumns

// DequeueBuild claims the oldest pending build and marks its job running.
func (q *Queries) DequeueBuild(ctx context.Context) (WsaWorkspaceBuild, error) {
	return scanBuild(q.db.QueryRow(ctx, dequeueBuild))
}

const cancelUnstartedBuilds = `-- name: CancelUnstartedBuilds :execrows
UPDATE wsa.workspace_builds
SET job_status = 'canceled', completed_at = now()
WHERE job_status = 'canceling' AND started_at IS NULL
`

func (q *Queries) CancelUnstartedBuilds(ctx context.Context) (int64, error) {
	result, err := q.db.Exec(ctx, cancelUnstartedBuilds)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const cancelPendingBuild = `-- name: CancelPendingBuild :one
UPDATE wsa.workspace_builds
SET job_status = 'canceled', completed_at = now()
WHERE id = $1 AND job_status = 'pending'
RETURNING ` + buildColumns

func (q *Queries) CancelPendingBuild(ctx context.Context, id string) (WsaWorkspaceBuild, error) {
	return scanBuild(q.db.QueryRow(ctx, cancelPendingBuild, id))
}

const requestCancelRunningBuild = `-- name: RequestCancelRunningBuild :one
UPDATE wsa.workspace_builds
SET job_status = 'canceling'
WHERE id = $1 AND job_status = 'running'
RETURNING ` + buildColumns

func (q *Queries) RequestCancelRunningBuild(ctx context.Context, id string) (WsaWorkspaceBuild, error) {
	return scanBuild(q.db.QueryRow(ctx, requestCancelRunningBuild, id))
}

const getBuildJobStatus = `-- name: GetBuildJobStatus :one
SELECT job_status FROM wsa.workspace_builds WHERE id = $1
`

func (q *Queries) GetBuildJobStatus(ctx context.Context, id string) (string, error) {
	row := q.db.QueryRow(ctx, getBuildJobStatus, id)
	var jobStatus string
	err := row.Scan(&jobStatus)
	return jobStatus, err
}

const completeBuild = `-- name: CompleteBuild :exec
UPDATE wsa.workspace_builds
SET job_status = $2, job_error = $3, resources = $4, completed_at = now()
WHERE id = $1
`

type CompleteBuildParams struct {
	ID        string      `json:"id"`
	JobStatus string      `json:"job_status"`
	JobError  pgtype.Text `json:"job_error"`
	Resources []byte      `json:"resources"`
}

func (q *Queries) CompleteBuild(ctx context.Context, arg CompleteBuildParams) error {
	_, err := q.db.Exec(ctx, completeBuild,
		arg.ID,
		arg.JobStatus,
		arg.JobError,
		arg.Resources,
	)
	return err
}

const getQueueDepth = `-- name: GetQueueDepth :one
SELECT count(*) FROM wsa.workspace_builds WHERE job_status = 'pending'
`

func (q *Queries) GetQueueDepth(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, getQueueDepth)
	var count int64
	err := row.Scan(&count)
	return count, err
}
