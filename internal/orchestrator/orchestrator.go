// Package orchestrator turns user gestures on a workspace page into remote
// build actions, gated by confirmation dialogs, and projects every action's
// pending and error state into a single View.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/observability"
)

var (
	ErrNoWorkspace    = errors.New("workspace is undefined")
	ErrNotPermitted   = errors.New("action not permitted")
	ErrNoDialog       = errors.New("no matching dialog is open")
	ErrNotCancelable  = errors.New("build is not cancelable")
	ErrNotRetryable   = errors.New("build has not failed")
	ErrNotRestartable = errors.New("workspace cannot be restarted while a build is in progress")
	ErrNoRecovery     = errors.New("no parameter recovery is pending for this action")
)

// Client is the remote workspace API the orchestrator drives.
type Client interface {
	GetWorkspace(ctx context.Context, id string) (core.Workspace, error)

	StartWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error)
	StopWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error)
	DeleteWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error)
	UpdateWorkspace(ctx context.Context, ws core.Workspace, params []core.WorkspaceBuildParameter) (core.WorkspaceBuild, error)
	RestartWorkspace(ctx context.Context, ws core.Workspace, params []core.WorkspaceBuildParameter) error
	ChangeWorkspaceVersion(ctx context.Context, ws core.Workspace, versionID string, params []core.WorkspaceBuildParameter) (core.WorkspaceBuild, error)
	ActivateWorkspace(ctx context.Context, ws core.Workspace) error
	CancelBuild(ctx context.Context, buildID string) error

	ListTemplateVersions(ctx context.Context, templateID string) ([]core.TemplateVersion, error)
	GetTemplateVersion(ctx context.Context, id string) (core.TemplateVersion, error)
	ListBuilds(ctx context.Context, workspaceID, cursor string, limit int) ([]core.WorkspaceBuild, string, error)
	GetBuildLogs(ctx context.Context, buildID string, after int64) ([]core.BuildLog, error)
	GetDeploymentConfig(ctx context.Context) (core.DeploymentConfig, error)
	GetSSHConfig(ctx context.Context) (core.SSHConfig, error)
	ResolveAutostart(ctx context.Context, workspaceID string) (parameterMismatch bool, err error)
}

type Options struct {
	Workspace   core.Workspace
	Template    core.Template
	Permissions core.Permissions

	// AmbientDark reports whether the surrounding UI is dark. It is called
	// once, in New.
	AmbientDark func() bool
	// Notify receives passive, non-blocking notifications.
	Notify func(message string)

	BuildsPageSize int
	Log            *zap.Logger
}

type Orchestrator struct {
	client Client
	log    *zap.Logger
	notify func(string)

	faviconTheme core.FaviconTheme
	pageSize     int

	mu            sync.Mutex
	workspace     core.Workspace
	template      core.Template
	perms         core.Permissions
	dialog        Dialog
	slots         map[Action]*slot
	debugMode     bool
	canAutostart  bool
	sshPrefix     string
	updateMessage string
	builds        []core.WorkspaceBuild
	buildsCursor  string
	buildsErr     error
	logs          []core.BuildLog
	logsBuildID   string
}

func New(client Client, opts Options) (*Orchestrator, error) {
	if opts.Workspace.ID == "" {
		return nil, ErrNoWorkspace
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("workspace_id", opts.Workspace.ID))

	notify := opts.Notify
	if notify == nil {
		notify = func(msg string) { log.Warn("notification", zap.String("message", msg)) }
	}

	theme := core.FaviconDark
	if opts.AmbientDark != nil {
		theme = core.FaviconThemeFor(opts.AmbientDark())
	}

	pageSize := opts.BuildsPageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	slots := make(map[Action]*slot, len(allActions))
	for _, a := range allActions {
		slots[a] = &slot{}
	}

	return &Orchestrator{
		client:       client,
		log:          log,
		notify:       notify,
		faviconTheme: theme,
		pageSize:     pageSize,
		workspace:    opts.Workspace,
		template:     opts.Template,
		perms:        opts.Permissions,
		slots:        slots,
		// Autostart stays allowed until the server reports a mismatch.
		canAutostart: true,
	}, nil
}

// Load fetches the page's secondary data: debug-mode availability, autostart
// resolution, SSH prefix, the update message, the first page of builds and,
// when visible, the build logs. Failures leave defaults in place.
func (o *Orchestrator) Load(ctx context.Context) {
	o.mu.Lock()
	ws := o.workspace
	perms := o.perms
	o.mu.Unlock()

	if perms.ViewDeploymentValues {
		cfg, err := o.client.GetDeploymentConfig(ctx)
		if err != nil {
			o.log.Warn("load deployment config failed", zap.Error(err))
		} else {
			o.mu.Lock()
			o.debugMode = cfg.EnableTerraformDebugMode
			o.mu.Unlock()
		}
	}

	mismatch, err := o.client.ResolveAutostart(ctx, ws.ID)
	if err != nil {
		o.log.Warn("resolve autostart failed", zap.Error(err))
	} else {
		o.mu.Lock()
		o.canAutostart = !mismatch
		o.mu.Unlock()
	}

	if ssh, err := o.client.GetSSHConfig(ctx); err != nil {
		o.log.Warn("load ssh config failed", zap.Error(err))
	} else {
		o.mu.Lock()
		o.sshPrefix = ssh.HostnamePrefix
		o.mu.Unlock()
	}

	o.loadUpdateMessage(ctx, ws)
	o.loadBuilds(ctx, "")

	if core.ShouldDisplayBuildLogs(ws) {
		if err := o.RefreshLogs(ctx); err != nil {
			o.log.Warn("load build logs failed", zap.Error(err))
		}
	}
}

func (o *Orchestrator) loadUpdateMessage(ctx context.Context, ws core.Workspace) {
	if !ws.Outdated || ws.TemplateActiveVersionID == "" {
		return
	}
	v, err := o.client.GetTemplateVersion(ctx, ws.TemplateActiveVersionID)
	if err != nil {
		o.log.Warn("load active version failed", zap.Error(err))
		return
	}
	o.mu.Lock()
	o.updateMessage = v.Message
	o.mu.Unlock()
}

func (o *Orchestrator) loadBuilds(ctx context.Context, cursor string) {
	builds, next, err := o.client.ListBuilds(ctx, o.workspaceID(), cursor, o.pageSize)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buildsErr = err
	if err != nil {
		return
	}
	if cursor == "" {
		o.builds = builds
	} else {
		o.builds = append(o.builds, builds...)
	}
	o.buildsCursor = next
}

// LoadMoreBuilds appends the next page of build history.
func (o *Orchestrator) LoadMoreBuilds(ctx context.Context) {
	o.mu.Lock()
	cursor := o.buildsCursor
	o.mu.Unlock()
	if cursor == "" {
		return
	}
	o.loadBuilds(ctx, cursor)
}

// Refresh re-fetches the workspace. Responses apply last-write-wins.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	ws, err := o.client.GetWorkspace(ctx, o.workspaceID())
	if err != nil {
		return fmt.Errorf("refresh workspace: %w", err)
	}
	o.mu.Lock()
	o.workspace = ws
	if ws.LatestBuild.ID != o.logsBuildID {
		o.logs = nil
		o.logsBuildID = ""
	}
	o.mu.Unlock()
	o.loadUpdateMessage(ctx, ws)
	return nil
}

// RefreshLogs fetches log lines of the latest build not yet seen.
func (o *Orchestrator) RefreshLogs(ctx context.Context) error {
	o.mu.Lock()
	buildID := o.workspace.LatestBuild.ID
	var after int64
	if buildID == o.logsBuildID && len(o.logs) > 0 {
		after = o.logs[len(o.logs)-1].ID
	}
	o.mu.Unlock()
	if buildID == "" {
		return nil
	}

	logs, err := o.client.GetBuildLogs(ctx, buildID, after)
	if err != nil {
		return fmt.Errorf("build logs: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.workspace.LatestBuild.ID != buildID {
		return nil
	}
	if o.logsBuildID != buildID {
		o.logs = nil
		o.logsBuildID = buildID
	}
	o.logs = append(o.logs, logs...)
	return nil
}

// Follow refreshes the workspace and its logs every interval until the
// latest build settles, calling fn with each new view.
func (o *Orchestrator) Follow(ctx context.Context, interval time.Duration, fn func(View)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := o.Refresh(ctx); err != nil {
			return err
		}
		if err := o.RefreshLogs(ctx); err != nil {
			o.log.Warn("refresh logs failed", zap.Error(err))
		}
		v := o.View()
		if fn != nil {
			fn(v)
		}
		if v.Workspace.LatestBuild.ID == "" || v.Workspace.LatestBuild.JobStatus.IsTerminal() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) workspaceID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.workspace.ID
}

// mutate runs one remote action against the current workspace, owning the
// action's slot for the duration. A new attempt supersedes the previous
// failure. Success triggers a refresh of the workspace.
func (o *Orchestrator) mutate(ctx context.Context, action Action, fn func(context.Context, core.Workspace) error) {
	o.mu.Lock()
	s := o.slots[action]
	s.inFlight++
	s.failure = nil
	ws := o.workspace
	o.mu.Unlock()

	log := o.log.With(zap.String("action", string(action)))
	log.Info("action started")
	observability.ActionsInFlight.WithLabelValues(string(action)).Inc()
	start := time.Now()

	err := fn(ctx, ws)

	observability.ActionsInFlight.WithLabelValues(string(action)).Dec()
	observability.ActionDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	failure := classify(action, err)

	o.mu.Lock()
	s.inFlight--
	s.failure = failure
	o.mu.Unlock()

	if failure != nil {
		observability.ActionTotal.WithLabelValues(string(action), failure.Kind.String()).Inc()
		log.Warn("action failed", zap.Stringer("kind", failure.Kind), zap.Error(err))
		return
	}
	observability.ActionTotal.WithLabelValues(string(action), "ok").Inc()
	log.Info("action succeeded")
	if err := o.Refresh(ctx); err != nil {
		log.Warn("refresh after action failed", zap.Error(err))
	}
}

// reset clears an action's failure, as when its recovery dialog is closed.
func (o *Orchestrator) reset(action Action) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.slots[action].failure = nil
}

func (o *Orchestrator) failure(action Action) *Failure {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.slots[action].failure
}

// LastFailure returns a copy of the action's most recent failure, or nil when
// its last run succeeded. Start failures for missing parameters surface only
// here.
func (o *Orchestrator) LastFailure(action Action) *Failure {
	f := o.failure(action)
	if f == nil {
		return nil
	}
	c := *f
	c.Parameters = append([]core.TemplateVersionParameter(nil), f.Parameters...)
	return &c
}
