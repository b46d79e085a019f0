package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/lzjever/mbos-wsa/internal/api/middleware"
	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/store"
)

type workspaceRecord struct {
	ws     store.WsaWorkspace
	tpl    store.WsaTemplate
	latest *store.WsaWorkspaceBuild
}

func (rec workspaceRecord) toCore() core.Workspace {
	return workspaceToCore(rec.ws, rec.tpl, rec.latest)
}

// loadWorkspace reads a workspace with its template and latest build.
func loadWorkspace(ctx context.Context, q *store.Queries, id string) (workspaceRecord, error) {
	var rec workspaceRecord
	ws, err := q.GetWorkspace(ctx, id)
	if err != nil {
		return rec, err
	}
	tpl, err := q.GetTemplate(ctx, ws.TemplateID)
	if err != nil {
		return rec, err
	}
	rec.ws, rec.tpl = ws, tpl
	latest, err := q.GetLatestBuild(ctx, id)
	switch {
	case err == nil:
		rec.latest = &latest
	case !isNotFound(err):
		return rec, err
	}
	return rec, nil
}

func permissionsFor(r *http.Request, ws core.Workspace) core.Permissions {
	actor := middleware.GetActor(r)
	return core.ResolvePermissions(actor.Name, actor.Roles, ws)
}

// ListWorkspaces lists live workspaces newest-first with pagination.
func (a *API) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := parseLimit(r.URL.Query().Get("limit"), 20, 100)
	cursor := parseCursor(r.URL.Query().Get("cursor"))

	workspaces, err := a.queries.ListWorkspaces(ctx, store.ListWorkspacesParams{
		Limit:  int32(limit),
		Cursor: cursor,
	})
	if err != nil {
		a.log.Error("list workspaces failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to list workspaces"))
		return
	}

	resp := core.WorkspaceList{Workspaces: make([]core.Workspace, 0, len(workspaces))}
	for _, ws := range workspaces {
		rec, err := loadWorkspace(ctx, a.queries, ws.ID)
		if err != nil {
			a.log.Error("load workspace failed", zap.String("workspace_id", ws.ID), zap.Error(err))
			WriteError(w, core.NewAppError(core.ErrInternal, "failed to list workspaces"))
			return
		}
		resp.Workspaces = append(resp.Workspaces, rec.toCore())
	}
	if len(workspaces) == limit {
		resp.NextCursor = encodeCursor(workspaces[len(workspaces)-1].CreatedAt)
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetWorkspace gets a single workspace, deleted ones included.
func (a *API) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	rec, err := loadWorkspace(r.Context(), a.queries, chi.URLParam(r, "workspace_id"))
	if err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	WriteJSON(w, http.StatusOK, rec.toCore())
}

// CreateWorkspace creates a workspace and queues its first start build.
func (a *API) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req core.CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}
	if req.Name == "" || req.OwnerName == "" || req.TemplateID == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "name, owner_name, and template_id are required"))
		return
	}
	if !permissionsFor(r, core.Workspace{OwnerName: req.OwnerName}).UpdateWorkspace {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to create workspaces for "+req.OwnerName))
		return
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		a.log.Error("begin tx failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create workspace"))
		return
	}
	defer tx.Rollback(ctx)
	qtx := a.queries.WithTx(tx)

	tpl, err := qtx.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		a.writeLookupError(w, err, "template")
		return
	}
	ws, err := qtx.CreateWorkspace(ctx, store.CreateWorkspaceParams{
		ID:         core.NewID(),
		Name:       req.Name,
		OwnerName:  req.OwnerName,
		TemplateID: tpl.ID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			WriteError(w, core.NewAppError(core.ErrConflictExists, "workspace "+req.OwnerName+"/"+req.Name+" already exists"))
			return
		}
		a.log.Error("create workspace failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create workspace"))
		return
	}

	versionID := req.TemplateVersionID
	if versionID == "" {
		versionID = tpl.ActiveVersionID.String
	}
	rec := workspaceRecord{ws: ws, tpl: tpl}
	build, err := a.queueBuild(ctx, qtx, rec, core.CreateBuildRequest{
		Transition:          core.TransitionStart,
		TemplateVersionID:   versionID,
		RichParameterValues: req.RichParameterValues,
	}, pgtype.Text{}, pgtype.Text{})
	if err != nil {
		a.writeBuildError(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		a.log.Error("commit failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create workspace"))
		return
	}
	_ = a.writeAudit(ctx, a.queries, r, ws.ID, "workspace.create", &build.ID, req)
	recordQueued(build)

	rec.latest = &build
	WriteJSON(w, http.StatusCreated, rec.toCore())
}

// GetPermissions resolves what the calling actor may do to a workspace.
func (a *API) GetPermissions(w http.ResponseWriter, r *http.Request) {
	rec, err := loadWorkspace(r.Context(), a.queries, chi.URLParam(r, "workspace_id"))
	if err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	WriteJSON(w, http.StatusOK, permissionsFor(r, rec.toCore()))
}

// ResolveAutostart reports whether starting the workspace unattended at its
// template's active version would lack parameter values.
func (a *API) ResolveAutostart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := loadWorkspace(ctx, a.queries, chi.URLParam(r, "workspace_id"))
	if err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	if !rec.tpl.ActiveVersionID.Valid {
		WriteJSON(w, http.StatusOK, core.ResolveAutostartResponse{})
		return
	}
	version, err := a.queries.GetTemplateVersion(ctx, rec.tpl.ActiveVersionID.String)
	if err != nil {
		a.writeLookupError(w, err, "template version")
		return
	}
	templateParams, err := versionParameters(version)
	if err != nil {
		a.log.Error("decode version parameters failed", zap.String("version_id", version.ID), zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to read version parameters"))
		return
	}
	var prev []core.WorkspaceBuildParameter
	if rec.latest != nil {
		prev = buildParameters(*rec.latest)
	}
	missing := core.MissingParameters(prev, nil, templateParams)
	WriteJSON(w, http.StatusOK, core.ResolveAutostartResponse{ParameterMismatch: len(missing) > 0})
}

// UpdateDormancy marks a workspace dormant or brings it back.
func (a *API) UpdateDormancy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "workspace_id")

	var req core.UpdateDormancyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}

	rec, err := loadWorkspace(ctx, a.queries, id)
	if err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	if rec.ws.Deleted {
		WriteError(w, core.NewAppError(core.ErrNotFound, "workspace not found"))
		return
	}
	if !permissionsFor(r, rec.toCore()).UpdateWorkspace {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to update this workspace"))
		return
	}

	dormantAt := pgtype.Timestamptz{}
	if req.Dormant {
		dormantAt = rec.ws.DormantAt
		if !dormantAt.Valid {
			dormantAt = pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
		}
	}
	if _, err := a.queries.SetWorkspaceDormancy(ctx, store.SetWorkspaceDormancyParams{
		ID:        id,
		DormantAt: dormantAt,
	}); err != nil {
		a.log.Error("update dormancy failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to update dormancy"))
		return
	}
	action := "workspace.activate"
	if req.Dormant {
		action = "workspace.dormant"
	}
	_ = a.writeAudit(ctx, a.queries, r, id, action, nil, req)

	rec, err = loadWorkspace(ctx, a.queries, id)
	if err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	WriteJSON(w, http.StatusOK, rec.toCore())
}

// ListAuditEvents returns a workspace's audit trail, oldest first.
func (a *API) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "workspace_id")

	rec, err := loadWorkspace(ctx, a.queries, id)
	if err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	if !permissionsFor(r, rec.toCore()).UpdateWorkspace {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to read this workspace's audit trail"))
		return
	}
	events, err := a.queries.ListAuditEvents(ctx, textFromString(id))
	if err != nil {
		a.log.Error("list audit events failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to list audit events"))
		return
	}
	resp := make([]core.AuditEvent, len(events))
	for i, e := range events {
		resp[i] = auditToCore(e)
	}
	WriteJSON(w, http.StatusOK, resp)
}
