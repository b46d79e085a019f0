// Package client is the HTTP client of the workspace build API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lzjever/mbos-wsa/internal/core"
)

const (
	HeaderActor          = "X-Actor"
	HeaderActorRoles     = "X-Actor-Roles"
	HeaderIdempotencyKey = "Idempotency-Key"
)

type Options struct {
	HTTPClient *http.Client
	Actor      string
	Roles      []string
	// PollInterval is how often a restart checks on its builds.
	PollInterval time.Duration
	Log          *zap.Logger
}

type Client struct {
	baseURL string
	http    *http.Client
	actor   string
	roles   []string
	poll    time.Duration
	log     *zap.Logger
}

func New(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		actor:   opts.Actor,
		roles:   opts.Roles,
		poll:    poll,
		log:     log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, headers map[string]string) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.actor != "" {
		req.Header.Set(HeaderActor, c.actor)
	}
	if len(c.roles) > 0 {
		req.Header.Set(HeaderActorRoles, strings.Join(c.roles, ","))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return parseResponse(resp, out)
}

func parseResponse(resp *http.Response, out interface{}) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp core.ErrorResponse
		if err := json.Unmarshal(b, &errResp); err != nil || errResp.Code == "" {
			return &core.AppError{Code: core.ErrInternal, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
		}
		if errResp.Code == core.ErrMissingBuildParameters {
			return &core.MissingBuildParametersError{Parameters: errResp.Parameters, VersionID: errResp.VersionID}
		}
		return &core.AppError{Code: errResp.Code, Message: errResp.Message}
	}
	if out != nil && len(b) > 0 {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out, nil)
}

// Ping measures the round trip to the API's health endpoint.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.get(ctx, "/healthz", nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (c *Client) GetWorkspace(ctx context.Context, id string) (core.Workspace, error) {
	var ws core.Workspace
	err := c.get(ctx, "/v1/workspaces/"+url.PathEscape(id), &ws)
	return ws, err
}

func (c *Client) ListWorkspaces(ctx context.Context, cursor string, limit int) (core.WorkspaceList, error) {
	var out core.WorkspaceList
	err := c.get(ctx, "/v1/workspaces"+pageQuery(cursor, limit), &out)
	return out, err
}

func (c *Client) CreateWorkspace(ctx context.Context, req core.CreateWorkspaceRequest) (core.Workspace, error) {
	var ws core.Workspace
	err := c.do(ctx, http.MethodPost, "/v1/workspaces", req, &ws, idempotent())
	return ws, err
}

func (c *Client) GetPermissions(ctx context.Context, workspaceID string) (core.Permissions, error) {
	var p core.Permissions
	err := c.get(ctx, "/v1/workspaces/"+url.PathEscape(workspaceID)+"/permissions", &p)
	return p, err
}

func (c *Client) ResolveAutostart(ctx context.Context, workspaceID string) (bool, error) {
	var out core.ResolveAutostartResponse
	err := c.get(ctx, "/v1/workspaces/"+url.PathEscape(workspaceID)+"/resolve-autostart", &out)
	return out.ParameterMismatch, err
}

func (c *Client) postBuild(ctx context.Context, workspaceID string, req core.CreateBuildRequest) (core.WorkspaceBuild, error) {
	var b core.WorkspaceBuild
	err := c.do(ctx, http.MethodPost, "/v1/workspaces/"+url.PathEscape(workspaceID)+"/builds", req, &b, idempotent())
	return b, err
}

// StartWorkspace starts ws at the version of its latest build unless opts
// names another.
func (c *Client) StartWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error) {
	versionID := opts.TemplateVersionID
	if versionID == "" {
		versionID = ws.LatestBuild.TemplateVersionID
	}
	return c.postBuild(ctx, ws.ID, core.CreateBuildRequest{
		Transition:          core.TransitionStart,
		TemplateVersionID:   versionID,
		RichParameterValues: opts.BuildParameters,
		LogLevel:            opts.LogLevel,
	})
}

func (c *Client) StopWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error) {
	return c.postBuild(ctx, ws.ID, core.CreateBuildRequest{
		Transition: core.TransitionStop,
		LogLevel:   opts.LogLevel,
	})
}

func (c *Client) DeleteWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error) {
	return c.postBuild(ctx, ws.ID, core.CreateBuildRequest{
		Transition: core.TransitionDelete,
		LogLevel:   opts.LogLevel,
		Orphan:     opts.Orphan,
	})
}

// UpdateWorkspace starts ws at its template's active version.
func (c *Client) UpdateWorkspace(ctx context.Context, ws core.Workspace, params []core.WorkspaceBuildParameter) (core.WorkspaceBuild, error) {
	tpl, err := c.GetTemplate(ctx, ws.TemplateID)
	if err != nil {
		return core.WorkspaceBuild{}, fmt.Errorf("get template: %w", err)
	}
	return c.startAtVersion(ctx, ws, tpl.ActiveVersionID, params)
}

// ChangeWorkspaceVersion starts ws at versionID.
func (c *Client) ChangeWorkspaceVersion(ctx context.Context, ws core.Workspace, versionID string, params []core.WorkspaceBuildParameter) (core.WorkspaceBuild, error) {
	return c.startAtVersion(ctx, ws, versionID, params)
}

// startAtVersion fails with *core.MissingBuildParametersError before posting
// anything when the target version needs values neither params nor the
// latest build supply.
func (c *Client) startAtVersion(ctx context.Context, ws core.Workspace, versionID string, params []core.WorkspaceBuildParameter) (core.WorkspaceBuild, error) {
	oldParams, err := c.GetBuildParameters(ctx, ws.LatestBuild.ID)
	if err != nil {
		return core.WorkspaceBuild{}, fmt.Errorf("get build parameters: %w", err)
	}
	templateParams, err := c.GetTemplateVersionParameters(ctx, versionID)
	if err != nil {
		return core.WorkspaceBuild{}, fmt.Errorf("get version parameters: %w", err)
	}
	if missing := core.MissingParameters(oldParams, params, templateParams); len(missing) > 0 {
		return core.WorkspaceBuild{}, &core.MissingBuildParametersError{Parameters: missing, VersionID: versionID}
	}
	return c.postBuild(ctx, ws.ID, core.CreateBuildRequest{
		Transition:          core.TransitionStart,
		TemplateVersionID:   versionID,
		RichParameterValues: params,
	})
}

// RestartWorkspace stops ws, waits for the stop to settle and then starts it
// with params. A canceled stop ends the restart without starting.
func (c *Client) RestartWorkspace(ctx context.Context, ws core.Workspace, params []core.WorkspaceBuildParameter) error {
	stop, err := c.StopWorkspace(ctx, ws, core.BuildOptions{})
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	stopped, err := c.WaitForBuild(ctx, stop.ID)
	if err != nil {
		return fmt.Errorf("wait for stop: %w", err)
	}
	if stopped.Status == core.StatusCanceled {
		c.log.Info("restart ended by canceled stop", zap.String("build_id", stopped.ID))
		return nil
	}
	start, err := c.StartWorkspace(ctx, ws, core.BuildOptions{BuildParameters: params})
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if _, err := c.WaitForBuild(ctx, start.ID); err != nil {
		return fmt.Errorf("wait for start: %w", err)
	}
	return nil
}

// WaitForBuild polls the build until its job leaves pending and running.
func (c *Client) WaitForBuild(ctx context.Context, buildID string) (core.WorkspaceBuild, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		b, err := c.GetBuild(ctx, buildID)
		if err != nil {
			return b, err
		}
		if b.JobStatus != core.JobPending && b.JobStatus != core.JobRunning {
			return b, nil
		}
		select {
		case <-ctx.Done():
			return b, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ActivateWorkspace clears the workspace's dormancy.
func (c *Client) ActivateWorkspace(ctx context.Context, ws core.Workspace) error {
	return c.do(ctx, http.MethodPut, "/v1/workspaces/"+url.PathEscape(ws.ID)+"/dormant",
		core.UpdateDormancyRequest{Dormant: false}, nil, nil)
}

func (c *Client) SetDormant(ctx context.Context, workspaceID string, dormant bool) error {
	return c.do(ctx, http.MethodPut, "/v1/workspaces/"+url.PathEscape(workspaceID)+"/dormant",
		core.UpdateDormancyRequest{Dormant: dormant}, nil, nil)
}

func (c *Client) CancelBuild(ctx context.Context, buildID string) error {
	return c.do(ctx, http.MethodPatch, "/v1/workspacebuilds/"+url.PathEscape(buildID)+"/cancel", nil, nil, nil)
}

func (c *Client) GetBuild(ctx context.Context, buildID string) (core.WorkspaceBuild, error) {
	var b core.WorkspaceBuild
	err := c.get(ctx, "/v1/workspacebuilds/"+url.PathEscape(buildID), &b)
	return b, err
}

func (c *Client) GetBuildParameters(ctx context.Context, buildID string) ([]core.WorkspaceBuildParameter, error) {
	if buildID == "" {
		return nil, nil
	}
	var out []core.WorkspaceBuildParameter
	err := c.get(ctx, "/v1/workspacebuilds/"+url.PathEscape(buildID)+"/parameters", &out)
	return out, err
}

func (c *Client) ListBuilds(ctx context.Context, workspaceID, cursor string, limit int) ([]core.WorkspaceBuild, string, error) {
	var out core.BuildList
	err := c.get(ctx, "/v1/workspaces/"+url.PathEscape(workspaceID)+"/builds"+pageQuery(cursor, limit), &out)
	return out.Builds, out.NextCursor, err
}

func (c *Client) GetBuildLogs(ctx context.Context, buildID string, after int64) ([]core.BuildLog, error) {
	var out []core.BuildLog
	path := "/v1/workspacebuilds/" + url.PathEscape(buildID) + "/logs"
	if after > 0 {
		path += "?after=" + strconv.FormatInt(after, 10)
	}
	err := c.get(ctx, path, &out)
	return out, err
}

func (c *Client) ListAuditEvents(ctx context.Context, workspaceID string) ([]core.AuditEvent, error) {
	var out []core.AuditEvent
	err := c.get(ctx, "/v1/workspaces/"+url.PathEscape(workspaceID)+"/audit", &out)
	return out, err
}

func (c *Client) CreateTemplate(ctx context.Context, req core.CreateTemplateRequest) (core.Template, error) {
	var t core.Template
	err := c.do(ctx, http.MethodPost, "/v1/templates", req, &t, nil)
	return t, err
}

func (c *Client) GetTemplate(ctx context.Context, id string) (core.Template, error) {
	var t core.Template
	err := c.get(ctx, "/v1/templates/"+url.PathEscape(id), &t)
	return t, err
}

func (c *Client) CreateTemplateVersion(ctx context.Context, templateID string, req core.CreateTemplateVersionRequest) (core.TemplateVersion, error) {
	var v core.TemplateVersion
	err := c.do(ctx, http.MethodPost, "/v1/templates/"+url.PathEscape(templateID)+"/versions", req, &v, nil)
	return v, err
}

func (c *Client) ListTemplateVersions(ctx context.Context, templateID string) ([]core.TemplateVersion, error) {
	var out []core.TemplateVersion
	err := c.get(ctx, "/v1/templates/"+url.PathEscape(templateID)+"/versions", &out)
	return out, err
}

func (c *Client) SetActiveVersion(ctx context.Context, templateID, versionID string) error {
	return c.do(ctx, http.MethodPatch, "/v1/templates/"+url.PathEscape(templateID)+"/active-version",
		core.UpdateActiveVersionRequest{ID: versionID}, nil, nil)
}

func (c *Client) GetTemplateVersion(ctx context.Context, id string) (core.TemplateVersion, error) {
	var v core.TemplateVersion
	err := c.get(ctx, "/v1/templateversions/"+url.PathEscape(id), &v)
	return v, err
}

func (c *Client) GetTemplateVersionParameters(ctx context.Context, versionID string) ([]core.TemplateVersionParameter, error) {
	var out []core.TemplateVersionParameter
	err := c.get(ctx, "/v1/templateversions/"+url.PathEscape(versionID)+"/rich-parameters", &out)
	return out, err
}

func (c *Client) GetDeploymentConfig(ctx context.Context) (core.DeploymentConfig, error) {
	var cfg core.DeploymentConfig
	err := c.get(ctx, "/v1/deployment/config", &cfg)
	return cfg, err
}

func (c *Client) GetSSHConfig(ctx context.Context) (core.SSHConfig, error) {
	var cfg core.SSHConfig
	err := c.get(ctx, "/v1/deployment/ssh", &cfg)
	return cfg, err
}

func pageQuery(cursor string, limit int) string {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func idempotent() map[string]string {
	return map[string]string{HeaderIdempotencyKey: uuid.NewString()}
}
