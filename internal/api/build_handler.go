package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/observability"
	"github.com/lzjever/mbos-wsa/internal/store"
)

const idempotencyKeyHeader = "Idempotency-Key"

// validateBuildRequest checks what can be checked without the database.
func validateBuildRequest(req core.CreateBuildRequest) *core.AppError {
	if !req.Transition.Valid() {
		return core.NewAppError(core.ErrBadRequest, fmt.Sprintf("unknown transition %q", req.Transition))
	}
	if !req.LogLevel.Valid() {
		return core.NewAppError(core.ErrBadRequest, fmt.Sprintf("unknown log level %q", req.LogLevel))
	}
	if req.Orphan && req.Transition != core.TransitionDelete {
		return core.NewAppError(core.ErrBadRequest, "orphan is only valid with the delete transition")
	}
	for _, p := range req.RichParameterValues {
		if p.Name == "" {
			return core.NewAppError(core.ErrBadRequest, "parameter name is required")
		}
	}
	return nil
}

func recordQueued(b store.WsaWorkspaceBuild) {
	observability.BuildsQueuedTotal.WithLabelValues(b.Transition).Inc()
}

// queueBuild validates req against the workspace's state and the target
// template version and inserts the build. The caller holds the workspace
// lock. Errors are *core.AppError or *core.MissingBuildParametersError.
func (a *API) queueBuild(ctx context.Context, q *store.Queries, rec workspaceRecord, req core.CreateBuildRequest, idemKey, hash pgtype.Text) (store.WsaWorkspaceBuild, error) {
	if rec.ws.Deleted {
		return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrNotFound, "workspace not found")
	}
	if rec.latest != nil && !core.JobStatus(rec.latest.JobStatus).IsTerminal() {
		return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrConflictBuildActive,
			fmt.Sprintf("build #%d is still %s", rec.latest.BuildNumber, rec.latest.JobStatus))
	}
	if req.Transition == core.TransitionStart && rec.ws.DormantAt.Valid {
		return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrWorkspaceDormant, "workspace is dormant; activate it first")
	}

	versionID := req.TemplateVersionID
	if versionID == "" && rec.latest != nil {
		versionID = rec.latest.TemplateVersionID
	}
	if versionID == "" {
		versionID = rec.tpl.ActiveVersionID.String
	}
	if versionID == "" {
		return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrBadRequest, "template has no active version")
	}
	version, err := q.GetTemplateVersion(ctx, versionID)
	if err != nil {
		if isNotFound(err) {
			return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrBadRequest, "template version not found")
		}
		return store.WsaWorkspaceBuild{}, fmt.Errorf("get template version: %w", err)
	}
	if version.TemplateID != rec.ws.TemplateID {
		return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrBadRequest, "template version belongs to another template")
	}
	templateParams, err := versionParameters(version)
	if err != nil {
		return store.WsaWorkspaceBuild{}, fmt.Errorf("decode version parameters: %w", err)
	}

	declared := make(map[string]bool, len(templateParams))
	for _, tp := range templateParams {
		declared[tp.Name] = true
	}
	for _, p := range req.RichParameterValues {
		if !declared[p.Name] {
			return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrBadRequest, fmt.Sprintf("unknown parameter %q", p.Name))
		}
	}

	var prev []core.WorkspaceBuildParameter
	if rec.latest != nil {
		prev = buildParameters(*rec.latest)
	}
	if err := core.ValidateImmutable(prev, req.RichParameterValues, templateParams); err != nil {
		return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrImmutableParameter, err.Error())
	}

	var values []core.WorkspaceBuildParameter
	for _, p := range core.MergeParameters(prev, req.RichParameterValues) {
		if declared[p.Name] {
			values = append(values, p)
		}
	}
	values = core.ApplyDefaults(values, templateParams)

	if req.Transition == core.TransitionStart {
		if unset := core.UnsetRequiredParameters(values, templateParams); len(unset) > 0 {
			return store.WsaWorkspaceBuild{}, &core.MissingBuildParametersError{Parameters: unset, VersionID: versionID}
		}
		if invalid := core.InvalidOptions(values, templateParams); len(invalid) > 0 {
			names := make([]string, len(invalid))
			for i, p := range invalid {
				names[i] = p.Name
			}
			return store.WsaWorkspaceBuild{}, core.NewAppError(core.ErrBadRequest,
				"value is not an allowed option for: "+strings.Join(names, ", "))
		}
	}

	if values == nil {
		values = []core.WorkspaceBuildParameter{}
	}
	paramsJSON, _ := json.Marshal(values)
	build, err := q.InsertWorkspaceBuild(ctx, store.InsertWorkspaceBuildParams{
		ID:                core.NewID(),
		WorkspaceID:       rec.ws.ID,
		TemplateVersionID: versionID,
		Transition:        string(req.Transition),
		LogLevel:          string(req.LogLevel),
		Orphan:            req.Orphan,
		Parameters:        paramsJSON,
		IdempotencyKey:    idemKey,
		RequestHash:       hash,
	})
	if err != nil {
		return store.WsaWorkspaceBuild{}, fmt.Errorf("insert build: %w", err)
	}
	if err := q.TouchWorkspace(ctx, rec.ws.ID); err != nil {
		return store.WsaWorkspaceBuild{}, fmt.Errorf("touch workspace: %w", err)
	}
	return build, nil
}

// writeBuildError writes an error returned by queueBuild.
func (a *API) writeBuildError(w http.ResponseWriter, err error) {
	var missing *core.MissingBuildParametersError
	if errors.As(err, &missing) {
		WriteMissingParameters(w, missing)
		return
	}
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		WriteError(w, appErr)
		return
	}
	a.log.Error("queue build failed", zap.Error(err))
	WriteError(w, core.NewAppError(core.ErrInternal, "failed to queue build"))
}

// CreateBuild queues a build of the workspace. A repeated Idempotency-Key
// with the same request returns the original build.
func (a *API) CreateBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := chi.URLParam(r, "workspace_id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}
	var req core.CreateBuildRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}
	if appErr := validateBuildRequest(req); appErr != nil {
		WriteError(w, appErr)
		return
	}

	var idemKey, hash pgtype.Text
	if key := r.Header.Get(idempotencyKeyHeader); key != "" {
		idemKey = pgtype.Text{String: key, Valid: true}
		hash = pgtype.Text{String: core.ComputeRequestHash(body, r.Method, r.URL.Path), Valid: true}
		existing, err := a.queries.GetBuildByIdempotencyKey(ctx, store.GetBuildByIdempotencyKeyParams{
			WorkspaceID:    workspaceID,
			IdempotencyKey: idemKey,
		})
		switch {
		case err == nil && existing.RequestHash == hash:
			WriteJSON(w, http.StatusOK, buildToCore(existing))
			return
		case err == nil:
			WriteError(w, core.NewAppError(core.ErrConflictIdempotent, "idempotency key reused with a different request"))
			return
		case !isNotFound(err):
			a.log.Error("idempotency lookup failed", zap.Error(err))
			WriteError(w, core.NewAppError(core.ErrInternal, "failed to queue build"))
			return
		}
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		a.log.Error("begin tx failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to queue build"))
		return
	}
	defer tx.Rollback(ctx)
	qtx := a.queries.WithTx(tx)

	if err := qtx.AcquireWorkspaceLock(ctx, workspaceID); err != nil {
		a.log.Error("acquire workspace lock failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to queue build"))
		return
	}
	rec, err := loadWorkspace(ctx, qtx, workspaceID)
	if err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	perms := permissionsFor(r, rec.toCore())
	if !perms.UpdateWorkspace {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to build this workspace"))
		return
	}
	if req.Orphan && !perms.UpdateTemplate {
		WriteError(w, core.NewAppError(core.ErrForbidden, "orphan delete requires template permissions"))
		return
	}

	build, err := a.queueBuild(ctx, qtx, rec, req, idemKey, hash)
	if err != nil {
		a.writeBuildError(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		a.log.Error("commit failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to queue build"))
		return
	}
	_ = a.writeAudit(ctx, a.queries, r, workspaceID, "build.create", &build.ID, req)
	recordQueued(build)
	a.log.Info("build queued",
		zap.String("workspace_id", workspaceID),
		zap.String("build_id", build.ID),
		zap.String("transition", build.Transition),
		zap.Int32("build_number", build.BuildNumber),
	)

	WriteJSON(w, http.StatusCreated, buildToCore(build))
}

// ListBuilds lists a workspace's builds newest-first with pagination.
func (a *API) ListBuilds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := chi.URLParam(r, "workspace_id")
	limit := parseLimit(r.URL.Query().Get("limit"), 25, 100)

	if _, err := a.queries.GetWorkspace(ctx, workspaceID); err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	builds, err := a.queries.ListWorkspaceBuilds(ctx, store.ListWorkspaceBuildsParams{
		WorkspaceID: workspaceID,
		Limit:       int32(limit),
		Before:      parseBuildCursor(r.URL.Query().Get("cursor")),
	})
	if err != nil {
		a.log.Error("list builds failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to list builds"))
		return
	}

	resp := core.BuildList{Builds: make([]core.WorkspaceBuild, len(builds))}
	for i, b := range builds {
		resp.Builds[i] = buildToCore(b)
	}
	if len(builds) == limit && builds[len(builds)-1].BuildNumber > 1 {
		resp.NextCursor = encodeBuildCursor(builds[len(builds)-1].BuildNumber)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetBuild gets a single build.
func (a *API) GetBuild(w http.ResponseWriter, r *http.Request) {
	b, err := a.queries.GetWorkspaceBuild(r.Context(), chi.URLParam(r, "build_id"))
	if err != nil {
		a.writeLookupError(w, err, "build")
		return
	}
	WriteJSON(w, http.StatusOK, buildToCore(b))
}

// GetBuildParameters returns the parameter values a build ran with.
func (a *API) GetBuildParameters(w http.ResponseWriter, r *http.Request) {
	b, err := a.queries.GetWorkspaceBuild(r.Context(), chi.URLParam(r, "build_id"))
	if err != nil {
		a.writeLookupError(w, err, "build")
		return
	}
	params := buildParameters(b)
	if params == nil {
		params = []core.WorkspaceBuildParameter{}
	}
	WriteJSON(w, http.StatusOK, params)
}

// GetBuildLogs returns a build's log lines with id greater than ?after.
func (a *API) GetBuildLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	buildID := chi.URLParam(r, "build_id")

	var after int64
	if s := r.URL.Query().Get("after"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			WriteError(w, core.NewAppError(core.ErrBadRequest, "after must be a non-negative log id"))
			return
		}
		after = n
	}

	if _, err := a.queries.GetWorkspaceBuild(ctx, buildID); err != nil {
		a.writeLookupError(w, err, "build")
		return
	}
	logs, err := a.queries.ListBuildLogs(ctx, store.ListBuildLogsParams{BuildID: buildID, After: after})
	if err != nil {
		a.log.Error("list build logs failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to list build logs"))
		return
	}
	resp := make([]core.BuildLog, len(logs))
	for i, l := range logs {
		resp[i] = logToCore(l)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// CancelBuild cancels a queued build outright and asks a running one to
// stop. Settled builds cannot be canceled.
func (a *API) CancelBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	buildID := chi.URLParam(r, "build_id")

	b, err := a.queries.GetWorkspaceBuild(ctx, buildID)
	if err != nil {
		a.writeLookupError(w, err, "build")
		return
	}
	rec, err := loadWorkspace(ctx, a.queries, b.WorkspaceID)
	if err != nil {
		a.writeLookupError(w, err, "workspace")
		return
	}
	if !permissionsFor(r, rec.toCore()).UpdateWorkspace {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to cancel this build"))
		return
	}

	switch core.JobStatus(b.JobStatus) {
	case core.JobPending:
		b, err = a.queries.CancelPendingBuild(ctx, buildID)
		if isNotFound(err) {
			// Picked up by a builder in the meantime.
			b, err = a.queries.RequestCancelRunningBuild(ctx, buildID)
		}
	case core.JobRunning:
		b, err = a.queries.RequestCancelRunningBuild(ctx, buildID)
	default:
		WriteError(w, core.NewAppError(core.ErrConflictNotCancelable,
			fmt.Sprintf("build is %s and cannot be canceled", b.JobStatus)))
		return
	}
	if err != nil {
		if isNotFound(err) {
			WriteError(w, core.NewAppError(core.ErrConflictNotCancelable, "build finished before it could be canceled"))
			return
		}
		a.log.Error("cancel build failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to cancel build"))
		return
	}
	_ = a.writeAudit(ctx, a.queries, r, b.WorkspaceID, "build.cancel", &buildID, nil)

	WriteJSON(w, http.StatusOK, buildToCore(b))
}
