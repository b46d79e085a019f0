package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createTemplate = `-- name: CreateTemplate :one
INSERT INTO wsa.templates (id, name, display_name)
VALUES ($1, $2, $3)
RETURNING id, name, display_name, active_version_id, created_at, updated_at
`

type CreateTemplateParams struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

func (q *Queries) CreateTemplate(ctx context.Context, arg CreateTemplateParams) (WsaTemplate, error) {
	row := q.db.QueryRow(ctx, createTemplate, arg.ID, arg.Name, arg.DisplayName)
	var i WsaTemplate
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.DisplayName,
		&i.ActiveVersionID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTemplate = `-- name: GetTemplate :one
SELECT id, name, display_name, active_version_id, created_at, updated_at
FROM wsa.templates
WHERE id = $1
`

func (q *Queries) GetTemplate(ctx context.Context, id string) (WsaTemplate, error) {
	row := q.db.QueryRow(ctx, getTemplate, id)
	var i WsaTemplate
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.DisplayName,
		&i.ActiveVersionID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTemplateByName = `-- name: GetTemplateByName :one
SELECT id, name, display_name, active_version_id, created_at, updated_at
FROM wsa.templates
WHERE name = $1
`

func (q *Queries) GetTemplateByName(ctx context.Context, name string) (WsaTemplate, error) {
	row := q.db.QueryRow(ctx, getTemplateByName, name)
	var i WsaTemplate
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.DisplayName,
		&i.ActiveVersionID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const setActiveVersion = `-- name: SetActiveVersion :execrows
UPDATE wsa.templates
SET active_version_id = $2, updated_at = now()
WHERE id = $1
`

type SetActiveVersionParams struct {
	ID              string      `json:"id"`
	ActiveVersionID pgtype.Text `json:"active_version_id"`
}

func (q *Queries) SetActiveVersion(ctx context.Context, arg SetActiveVersionParams) (int64, error) {
	result, err := q.db.Exec(ctx, setActiveVersion, arg.ID, arg.ActiveVersionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createTemplateVersion = `-- name: CreateTemplateVersion :one
INSERT INTO wsa.template_versions (id, template_id, name, message, parameters, resources)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, template_id, name, message, parameters, resources, created_at
`

type CreateTemplateVersionParams struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	Parameters []byte `json:"parameters"`
	Resources  []byte `json:"resources"`
}

func (q *Queries) CreateTemplateVersion(ctx context.Context, arg CreateTemplateVersionParams) (WsaTemplateVersion, error) {
	row := q.db.QueryRow(ctx, createTemplateVersion,
		arg.ID,
		arg.TemplateID,
		arg.Name,
		arg.Message,
		arg.Parameters,
		arg.Resources,
	)
	var i WsaTemplateVersion
	err := row.Scan(
		&i.ID,
		&i.TemplateID,
		&i.Name,
		&i.Message,
		&i.Parameters,
		&i.Resources,
		&i.CreatedAt,
	)
	return i, err
}

const getTemplateVersion = `-- name: GetTemplateVersion :one
SELECT id, template_id, name, message, parameters, resources, created_at
FROM wsa.template_versions
WHERE id = $1
`

func (q *Queries) GetTemplateVersion(ctx context.Context, id string) (WsaTemplateVersion, error) {
	row := q.db.QueryRow(ctx, getTemplateVersion, id)
	var i WsaTemplateVersion
	err := row.Scan(
		&i.ID,
		&i.TemplateID,
		&i.Name,
		&i.Message,
		&i.Parameters,
		&i.Resources,
		&i.CreatedAt,
	)
	return i, err
}

const listTemplateVersions = `-- name: ListTemplateVersions :many
SELECT id, template_id, name, message, parameters, resources, created_at
FROM wsa.template_versions
WHERE template_id = $1
ORDER BY created_at ASC, id ASC
`

func (q *Queries) ListTemplateVersions(ctx context.Context, templateID string) ([]WsaTemplateVersion, error) {
	rows, err := q.db.Query(ctx, listTemplateVersions, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WsaTemplateVersion
	for rows.Next() {
		var i WsaTemplateVersion
		if err := rows.Scan(
			&i.ID,
			&i.TemplateID,
			&i.Name,
			&i.Message,
			&i.Parameters,
			&i.Resources,
			&i.CreatedAt,
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
