package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/lzjever/mbos-wsa/internal/api/middleware"
	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/store"
)

// canUpdateTemplates resolves template permissions, which do not depend on
// any workspace.
func canUpdateTemplates(r *http.Request) bool {
	actor := middleware.GetActor(r)
	return core.ResolvePermissions(actor.Name, actor.Roles, core.Workspace{}).UpdateTemplate
}

func validateVersionRequest(req core.CreateTemplateVersionRequest) *core.AppError {
	if req.Name == "" {
		return core.NewAppError(core.ErrBadRequest, "version name is required")
	}
	if err := core.ValidateTemplateParameters(req.Parameters); err != nil {
		return core.NewAppError(core.ErrBadRequest, err.Error())
	}
	return nil
}

func versionParams(req core.CreateTemplateVersionRequest, templateID string) store.CreateTemplateVersionParams {
	params := req.Parameters
	if params == nil {
		params = []core.TemplateVersionParameter{}
	}
	resources := req.Resources
	if resources == nil {
		resources = []core.WorkspaceResource{}
	}
	paramsJSON, _ := json.Marshal(params)
	resourcesJSON, _ := json.Marshal(resources)
	return store.CreateTemplateVersionParams{
		ID:         core.NewID(),
		TemplateID: templateID,
		Name:       req.Name,
		Message:    req.Message,
		Parameters: paramsJSON,
		Resources:  resourcesJSON,
	}
}

// CreateTemplate creates a template with its first version, which becomes
// active.
func (a *API) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req core.CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}
	if req.Name == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "name is required"))
		return
	}
	if appErr := validateVersionRequest(req.Version); appErr != nil {
		WriteError(w, appErr)
		return
	}
	if !canUpdateTemplates(r) {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to manage templates"))
		return
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		a.log.Error("begin tx failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create template"))
		return
	}
	defer tx.Rollback(ctx)
	qtx := a.queries.WithTx(tx)

	tpl, err := qtx.CreateTemplate(ctx, store.CreateTemplateParams{
		ID:          core.NewID(),
		Name:        req.Name,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		if isUniqueViolation(err) {
			WriteError(w, core.NewAppError(core.ErrConflictExists, "template name already exists"))
			return
		}
		a.log.Error("create template failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create template"))
		return
	}
	version, err := qtx.CreateTemplateVersion(ctx, versionParams(req.Version, tpl.ID))
	if err != nil {
		a.log.Error("create template version failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create template version"))
		return
	}
	tpl.ActiveVersionID = pgtype.Text{String: version.ID, Valid: true}
	if _, err := qtx.SetActiveVersion(ctx, store.SetActiveVersionParams{
		ID:              tpl.ID,
		ActiveVersionID: tpl.ActiveVersionID,
	}); err != nil {
		a.log.Error("activate version failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to activate template version"))
		return
	}
	if err := tx.Commit(ctx); err != nil {
		a.log.Error("commit failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create template"))
		return
	}
	_ = a.writeAudit(ctx, a.queries, r, "", "template.create", nil, map[string]string{
		"template_id": tpl.ID,
		"version_id":  version.ID,
	})

	WriteJSON(w, http.StatusCreated, templateToCore(tpl))
}

// GetTemplate gets a single template.
func (a *API) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := a.queries.GetTemplate(r.Context(), chi.URLParam(r, "template_id"))
	if err != nil {
		a.writeLookupError(w, err, "template")
		return
	}
	WriteJSON(w, http.StatusOK, templateToCore(tpl))
}

// CreateTemplateVersion adds a version to a template, optionally making it
// the active one.
func (a *API) CreateTemplateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "template_id")

	var req core.CreateTemplateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}
	if appErr := validateVersionRequest(req); appErr != nil {
		WriteError(w, appErr)
		return
	}
	if !canUpdateTemplates(r) {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to manage templates"))
		return
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		a.log.Error("begin tx failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create template version"))
		return
	}
	defer tx.Rollback(ctx)
	qtx := a.queries.WithTx(tx)

	if _, err := qtx.GetTemplate(ctx, templateID); err != nil {
		a.writeLookupError(w, err, "template")
		return
	}
	version, err := qtx.CreateTemplateVersion(ctx, versionParams(req, templateID))
	if err != nil {
		if isUniqueViolation(err) {
			WriteError(w, core.NewAppError(core.ErrConflictExists, "version name already exists"))
			return
		}
		a.log.Error("create template version failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create template version"))
		return
	}
	if req.Activate {
		if _, err := qtx.SetActiveVersion(ctx, store.SetActiveVersionParams{
			ID:              templateID,
			ActiveVersionID: pgtype.Text{String: version.ID, Valid: true},
		}); err != nil {
			a.log.Error("activate version failed", zap.Error(err))
			WriteError(w, core.NewAppError(core.ErrInternal, "failed to activate template version"))
			return
		}
	}
	if err := tx.Commit(ctx); err != nil {
		a.log.Error("commit failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to create template version"))
		return
	}
	_ = a.writeAudit(ctx, a.queries, r, "", "template.version.create", nil, map[string]interface{}{
		"template_id": templateID,
		"version_id":  version.ID,
		"activate":    req.Activate,
	})

	WriteJSON(w, http.StatusCreated, versionToCore(version))
}

// ListTemplateVersions lists a template's versions oldest-first.
func (a *API) ListTemplateVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "template_id")

	if _, err := a.queries.GetTemplate(ctx, templateID); err != nil {
		a.writeLookupError(w, err, "template")
		return
	}
	versions, err := a.queries.ListTemplateVersions(ctx, templateID)
	if err != nil {
		a.log.Error("list template versions failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to list template versions"))
		return
	}
	resp := make([]core.TemplateVersion, len(versions))
	for i, v := range versions {
		resp[i] = versionToCore(v)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// UpdateActiveVersion promotes one of the template's versions.
func (a *API) UpdateActiveVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "template_id")

	var req core.UpdateActiveVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "version id is required"))
		return
	}
	if !canUpdateTemplates(r) {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to manage templates"))
		return
	}

	version, err := a.queries.GetTemplateVersion(ctx, req.ID)
	if err != nil {
		a.writeLookupError(w, err, "template version")
		return
	}
	if version.TemplateID != templateID {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "version belongs to another template"))
		return
	}
	n, err := a.queries.SetActiveVersion(ctx, store.SetActiveVersionParams{
		ID:              templateID,
		ActiveVersionID: pgtype.Text{String: version.ID, Valid: true},
	})
	if err != nil {
		a.log.Error("set active version failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to update active version"))
		return
	}
	if n == 0 {
		WriteError(w, core.NewAppError(core.ErrNotFound, "template not found"))
		return
	}
	_ = a.writeAudit(ctx, a.queries, r, "", "template.active_version.update", nil, req)

	tpl, err := a.queries.GetTemplate(ctx, templateID)
	if err != nil {
		a.writeLookupError(w, err, "template")
		return
	}
	WriteJSON(w, http.StatusOK, templateToCore(tpl))
}

// GetTemplateVersion gets a single template version.
func (a *API) GetTemplateVersion(w http.ResponseWriter, r *http.Request) {
	v, err := a.queries.GetTemplateVersion(r.Context(), chi.URLParam(r, "version_id"))
	if err != nil {
		a.writeLookupError(w, err, "template version")
		return
	}
	WriteJSON(w, http.StatusOK, versionToCore(v))
}

// GetTemplateVersionParameters returns the parameters a version declares.
func (a *API) GetTemplateVersionParameters(w http.ResponseWriter, r *http.Request) {
	v, err := a.queries.GetTemplateVersion(r.Context(), chi.URLParam(r, "version_id"))
	if err != nil {
		a.writeLookupError(w, err, "template version")
		return
	}
	params, err := versionParameters(v)
	if err != nil {
		a.log.Error("decode version parameters failed", zap.String("version_id", v.ID), zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to read version parameters"))
		return
	}
	if params == nil {
		params = []core.TemplateVersionParameter{}
	}
	WriteJSON(w, http.StatusOK, params)
}

// writeLookupError maps a failed single-row lookup to 404 or 500.
func (a *API) writeLookupError(w http.ResponseWriter, err error, what string) {
	if isNotFound(err) {
		WriteError(w, core.NewAppError(core.ErrNotFound, what+" not found"))
		return
	}
	a.log.Error("lookup failed", zap.String("kind", what), zap.Error(err))
	WriteError(w, core.NewAppError(core.ErrInternal, "failed to load "+what))
}
