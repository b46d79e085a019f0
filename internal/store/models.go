package store

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type WsaAuditEvent struct {
	EventID     int64              `json:"event_id"`
	Ts          pgtype.Timestamptz `json:"ts"`
	WorkspaceID pgtype.Text        `json:"workspace_id"`
	Actor       []byte             `json:"actor"`
	Action      string             `json:"action"`
	RequestID   pgtype.Text        `json:"request_id"`
	BuildID     pgtype.Text        `json:"build_id"`
	Payload     []byte             `json:"payload"`
}

type WsaBuildLog struct {
	ID        int64              `json:"id"`
	BuildID   string             `json:"build_id"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	Level     string             `json:"level"`
	Stage     string             `json:"stage"`
	Output    string             `json:"output"`
}

type WsaTemplate struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	DisplayName     string             `json:"display_name"`
	ActiveVersionID pgtype.Text        `json:"active_version_id"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
	UpdatedAt       pgtype.Timestamptz `json:"updated_at"`
}

type WsaTemplateVersion struct {
	ID         string             `json:"id"`
	TemplateID string             `json:"template_id"`
	Name       string             `json:"name"`
	Message    string             `json:"message"`
	Parameters []byte             `json:"parameters"`
	Resources  []byte             `json:"resources"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type WsaWorkspace struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	OwnerName  string             `json:"owner_name"`
	TemplateID string             `json:"template_id"`
	DormantAt  pgtype.Timestamptz `json:"dormant_at"`
	Deleted    bool               `json:"deleted"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

type WsaWorkspaceBuild struct {
	ID                string             `json:"id"`
	WorkspaceID       string             `json:"workspace_id"`
	BuildNumber       int32              `json:"build_number"`
	TemplateVersionID string             `json:"template_version_id"`
	Transition        string             `json:"transition"`
	JobStatus         string             `json:"job_status"`
	JobError          pgtype.Text        `json:"job_error"`
	LogLevel          string             `json:"log_level"`
	Orphan            bool               `json:"orphan"`
	Parameters        []byte             `json:"parameters"`
	Resources         []byte             `json:"resources"`
	IdempotencyKey    pgtype.Text        `json:"idempotency_key"`
	RequestHash       pgtype.Text        `json:"request_hash"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	StartedAt         pgtype.Timestamptz `json:"started_at"`
	CompletedAt       pgtype.Timestamptz `json:"completed_at"`
}
