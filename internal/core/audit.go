package core

import (
	"encoding/json"
	"time"
)

type AuditEvent struct {
	EventID     int64           `json:"event_id"`
	Ts          time.Time       `json:"ts"`
	WorkspaceID *string         `json:"workspace_id,omitempty"`
	Actor       json.RawMessage `json:"actor"`
	Action      string          `json:"action"`
	RequestID   *string         `json:"request_id,omitempty"`
	BuildID     *string         `json:"build_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}
