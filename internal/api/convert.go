package api

import (
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/store"
)

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func templateToCore(t store.WsaTemplate) core.Template {
	return core.Template{
		ID:              t.ID,
		Name:            t.Name,
		DisplayName:     t.DisplayName,
		ActiveVersionID: t.ActiveVersionID.String,
		CreatedAt:       t.CreatedAt.Time,
		UpdatedAt:       t.UpdatedAt.Time,
	}
}

func versionToCore(v store.WsaTemplateVersion) core.TemplateVersion {
	out := core.TemplateVersion{
		ID:         v.ID,
		TemplateID: v.TemplateID,
		Name:       v.Name,
		Message:    v.Message,
		CreatedAt:  v.CreatedAt.Time,
	}
	_ = json.Unmarshal(v.Resources, &out.Resources)
	if out.Resources == nil {
		out.Resources = []core.WorkspaceResource{}
	}
	return out
}

func versionParameters(v store.WsaTemplateVersion) ([]core.TemplateVersionParameter, error) {
	var params []core.TemplateVersionParameter
	if len(v.Parameters) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(v.Parameters, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func buildParameters(b store.WsaWorkspaceBuild) []core.WorkspaceBuildParameter {
	var params []core.WorkspaceBuildParameter
	_ = json.Unmarshal(b.Parameters, &params)
	return params
}

func buildToCore(b store.WsaWorkspaceBuild) core.WorkspaceBuild {
	transition := core.Transition(b.Transition)
	job := core.JobStatus(b.JobStatus)
	out := core.WorkspaceBuild{
		ID:                b.ID,
		WorkspaceID:       b.WorkspaceID,
		BuildNumber:       b.BuildNumber,
		TemplateVersionID: b.TemplateVersionID,
		Transition:        transition,
		Status:            core.DeriveStatus(transition, job),
		JobStatus:         job,
		JobError:          b.JobError.String,
		LogLevel:          core.LogLevel(b.LogLevel),
		Orphan:            b.Orphan,
		CreatedAt:         b.CreatedAt.Time,
		StartedAt:         timePtr(b.StartedAt),
		CompletedAt:       timePtr(b.CompletedAt),
	}
	_ = json.Unmarshal(b.Resources, &out.Resources)
	if out.Resources == nil {
		out.Resources = []core.WorkspaceResource{}
	}
	return out
}

// workspaceToCore assembles the API view of a workspace. latest is nil for a
// workspace that has never been built.
func workspaceToCore(ws store.WsaWorkspace, tpl store.WsaTemplate, latest *store.WsaWorkspaceBuild) core.Workspace {
	out := core.Workspace{
		ID:                      ws.ID,
		Name:                    ws.Name,
		OwnerName:               ws.OwnerName,
		TemplateID:              ws.TemplateID,
		TemplateName:            tpl.Name,
		TemplateActiveVersionID: tpl.ActiveVersionID.String,
		DormantAt:               timePtr(ws.DormantAt),
		CreatedAt:               ws.CreatedAt.Time,
		UpdatedAt:               ws.UpdatedAt.Time,
	}
	if latest != nil {
		out.LatestBuild = buildToCore(*latest)
		out.Outdated = tpl.ActiveVersionID.Valid && latest.TemplateVersionID != tpl.ActiveVersionID.String
	}
	return out
}

func logToCore(l store.WsaBuildLog) core.BuildLog {
	return core.BuildLog{
		ID:        l.ID,
		BuildID:   l.BuildID,
		CreatedAt: l.CreatedAt.Time,
		Level:     l.Level,
		Stage:     l.Stage,
		Output:    l.Output,
	}
}

func auditToCore(e store.WsaAuditEvent) core.AuditEvent {
	out := core.AuditEvent{
		EventID: e.EventID,
		Ts:      e.Ts.Time,
		Actor:   e.Actor,
		Action:  e.Action,
		Payload: e.Payload,
	}
	if e.WorkspaceID.Valid {
		out.WorkspaceID = &e.WorkspaceID.String
	}
	if e.RequestID.Valid {
		out.RequestID = &e.RequestID.String
	}
	if e.BuildID.Valid {
		out.BuildID = &e.BuildID.String
	}
	return out
}
