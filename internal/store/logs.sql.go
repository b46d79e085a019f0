package store

import (
	"context"
)

const insertBuildLog = `-- name: InsertBuildLog :one
INSERT INTO wsa.build_logs (build_id, level, stage, output)
VALUES ($1, $2, $3, $4)
RETURNING id, build_id, created_at, level, stage, output
`

type InsertBuildLogParams struct {
	BuildID string `json:"build_id"`
	Level   string `json:"level"`
	Stage   string `json:"stage"`
	Output  string `json:"output"`
}

func (q *Queries) InsertBuildLog(ctx context.Context, arg InsertBuildLogParams) (WsaBuildLog, error) {
	row := q.db.QueryRow(ctx, insertBuildLog,
		arg.BuildID,
		arg.Level,
		arg.Stage,
		arg.Output,
	)
	var i WsaBuildLog
	err := row.Scan(
		&i.ID,
		&i.BuildID,
		&i.CreatedAt,
		&i.Level,
		&i.Stage,
		&i.Output,
	)
	return i, err
}

const listBuildLogs = `-- name: ListBuildLogs :many
SELECT id, build_id, created_at, level, stage, output
FROM wsa.build_logs
WHERE build_id = $1 AND id > $2
ORDER BY id
`

type ListBuildLogsParams struct {
	BuildID string `json:"build_id"`
	After   int64  `json:"after"`
}

func (q *Queries) ListBuildLogs(ctx context.Context, arg ListBuildLogsParams) ([]WsaBuildLog, error) {
	rows, err := q.db.Query(ctx, listBuildLogs, arg.BuildID, arg.After)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WsaBuildLog
	for rows.Next() {
		var i WsaBuildLog
		if err := rows.Scan(
			&i.ID,
			&i.BuildID,
			&i.CreatedAt,
			&i.Level,
			&i.Stage,
			&i.Output,
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
