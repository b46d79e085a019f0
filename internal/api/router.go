package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lzjever/mbos-wsa/internal/api/middleware"
	"github.com/lzjever/mbos-wsa/internal/store"
)

type API struct {
	pool    *pgxpool.Pool
	queries *store.Queries
	cfg     Config
	log     *zap.Logger
}

func NewAPI(pool *pgxpool.Pool, cfg Config, log *zap.Logger) *API {
	return &API{
		pool:    pool,
		queries: store.New(pool),
		cfg:     cfg,
		log:     log,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recoverer(a.log))
	r.Use(middleware.Logger)
	r.Use(middleware.Identify)
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Health endpoints
	r.Get("/healthz", a.HealthHandler)
	r.Get("/readyz", a.ReadyHandler)

	r.Route("/v1", func(r chi.Router) {
		// Templates
		r.Post("/templates", a.CreateTemplate)
		r.Get("/templates/{template_id}", a.GetTemplate)
		r.Get("/templates/{template_id}/versions", a.ListTemplateVersions)
		r.Post("/templates/{template_id}/versions", a.CreateTemplateVersion)
		r.Patch("/templates/{template_id}/active-version", a.UpdateActiveVersion)
		r.Get("/templateversions/{version_id}", a.GetTemplateVersion)
		r.Get("/templateversions/{version_id}/rich-parameters", a.GetTemplateVersionParameters)

		// Workspaces
		r.Get("/workspaces", a.ListWorkspaces)
		r.Post("/workspaces", a.CreateWorkspace)
		r.Get("/workspaces/{workspace_id}", a.GetWorkspace)
		r.Get("/workspaces/{workspace_id}/permissions", a.GetPermissions)
		r.Get("/workspaces/{workspace_id}/resolve-autostart", a.ResolveAutostart)
		r.Put("/workspaces/{workspace_id}/dormant", a.UpdateDormancy)
		r.Get("/workspaces/{workspace_id}/audit", a.ListAuditEvents)

		// Builds
		r.Get("/workspaces/{workspace_id}/builds", a.ListBuilds)
		r.Post("/workspaces/{workspace_id}/builds", a.CreateBuild)
		r.Get("/workspacebuilds/{build_id}", a.GetBuild)
		r.Get("/workspacebuilds/{build_id}/parameters", a.GetBuildParameters)
		r.Get("/workspacebuilds/{build_id}/logs", a.GetBuildLogs)
		r.Patch("/workspacebuilds/{build_id}/cancel", a.CancelBuild)

		// Deployment
		r.Get("/deployment/config", a.GetDeploymentConfig)
		r.Get("/deployment/ssh", a.GetSSHConfig)
	})

	return r
}

// writeAudit writes an audit log entry on behalf of the request's actor.
func (a *API) writeAudit(ctx context.Context, q *store.Queries, r *http.Request, workspaceID, action string, buildID *string, payload interface{}) error {
	var buildIDVal pgtype.Text
	if buildID != nil {
		buildIDVal = pgtype.Text{String: *buildID, Valid: true}
	}

	payloadBytes, _ := json.Marshal(payload)
	actor, _ := json.Marshal(middleware.GetActor(r))

	_, err := q.InsertAudit(ctx, store.InsertAuditParams{
		WorkspaceID: textFromString(workspaceID),
		Actor:       actor,
		Action:      action,
		RequestID:   textFromString(middleware.GetRequestID(r)),
		BuildID:     buildIDVal,
		Payload:     payloadBytes,
	})
	if err != nil {
		a.log.Warn("write audit failed", zap.String("action", action), zap.Error(err))
	}
	return err
}

// encodeCursor encodes a timestamp as a base64 cursor.
func encodeCursor(t pgtype.Timestamptz) string {
	if !t.Valid {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(t.Time.Format(time.RFC3339Nano)))
}

// decodeCursor decodes a base64 cursor to a timestamp.
func decodeCursor(s string) (time.Time, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, string(b))
}

func parseCursor(s string) pgtype.Timestamptz {
	if s == "" {
		return pgtype.Timestamptz{Valid: false}
	}
	t, err := decodeCursor(s)
	if err != nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// encodeBuildCursor encodes a build number as a base64 cursor.
func encodeBuildCursor(n int32) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(int(n))))
}

func parseBuildCursor(s string) pgtype.Int4 {
	if s == "" {
		return pgtype.Int4{Valid: false}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pgtype.Int4{Valid: false}
	}
	n, err := strconv.Atoi(string(b))
	if err != nil || n < 1 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(n), Valid: true}
}

func parseLimit(s string, defaultVal, maxVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultVal
	}
	if n > maxVal {
		return maxVal
	}
	return n
}

func textFromString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
