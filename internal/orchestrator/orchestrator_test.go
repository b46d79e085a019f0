package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/lzjever/mbos-wsa/internal/core"
)

type call struct {
	method    string
	opts      core.BuildOptions
	params    []core.WorkspaceBuildParameter
	versionID string
	buildID   string
}

type fakeClient struct {
	mu        sync.Mutex
	calls     []call
	workspace core.Workspace
	versions  []core.TemplateVersion
	errs      map[string]error
	logs      []core.BuildLog
	builds    []core.WorkspaceBuild
	mismatch  bool
	debugMode bool
}

func (f *fakeClient) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if err, ok := f.errs[c.method]; ok {
		return err
	}
	return nil
}

func (f *fakeClient) mutations() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		switch c.method {
		case "start", "stop", "delete", "update", "restart", "change_version", "activate", "cancel":
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeClient) GetWorkspace(ctx context.Context, id string) (core.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workspace, nil
}

func (f *fakeClient) StartWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error) {
	return core.WorkspaceBuild{}, f.record(call{method: "start", opts: opts})
}

func (f *fakeClient) StopWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error) {
	return core.WorkspaceBuild{}, f.record(call{method: "stop", opts: opts})
}

func (f *fakeClient) DeleteWorkspace(ctx context.Context, ws core.Workspace, opts core.BuildOptions) (core.WorkspaceBuild, error) {
	return core.WorkspaceBuild{}, f.record(call{method: "delete", opts: opts})
}

func (f *fakeClient) UpdateWorkspace(ctx context.Context, ws core.Workspace, params []core.WorkspaceBuildParameter) (core.WorkspaceBuild, error) {
	return core.WorkspaceBuild{}, f.record(call{method: "update", params: params})
}

func (f *fakeClient) RestartWorkspace(ctx context.Context, ws core.Workspace, params []core.WorkspaceBuildParameter) error {
	return f.record(call{method: "restart", params: params})
}

func (f *fakeClient) ChangeWorkspaceVersion(ctx context.Context, ws core.Workspace, versionID string, params []core.WorkspaceBuildParameter) (core.WorkspaceBuild, error) {
	return core.WorkspaceBuild{}, f.record(call{method: "change_version", versionID: versionID, params: params})
}

func (f *fakeClient) ActivateWorkspace(ctx context.Context, ws core.Workspace) error {
	return f.record(call{method: "activate"})
}

func (f *fakeClient) CancelBuild(ctx context.Context, buildID string) error {
	return f.record(call{method: "cancel", buildID: buildID})
}

func (f *fakeClient) ListTemplateVersions(ctx context.Context, templateID string) ([]core.TemplateVersion, error) {
	return f.versions, f.record(call{method: "list_versions"})
}

func (f *fakeClient) GetTemplateVersion(ctx context.Context, id string) (core.TemplateVersion, error) {
	for _, v := range f.versions {
		if v.ID == id {
			return v, nil
		}
	}
	return core.TemplateVersion{}, core.NewAppError(core.ErrNotFound, "template version not found")
}

func (f *fakeClient) ListBuilds(ctx context.Context, workspaceID, cursor string, limit int) ([]core.WorkspaceBuild, string, error) {
	if err := f.record(call{method: "list_builds"}); err != nil {
		return nil, "", err
	}
	return f.builds, "", nil
}

func (f *fakeClient) GetBuildLogs(ctx context.Context, buildID string, after int64) ([]core.BuildLog, error) {
	var out []core.BuildLog
	for _, l := range f.logs {
		if l.BuildID == buildID && l.ID > after {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeClient) GetDeploymentConfig(ctx context.Context) (core.DeploymentConfig, error) {
	return core.DeploymentConfig{EnableTerraformDebugMode: f.debugMode}, nil
}

func (f *fakeClient) GetSSHConfig(ctx context.Context) (core.SSHConfig, error) {
	return core.SSHConfig{HostnamePrefix: "wsa."}, nil
}

func (f *fakeClient) ResolveAutostart(ctx context.Context, workspaceID string) (bool, error) {
	return f.mismatch, f.record(call{method: "resolve_autostart"})
}

func testWorkspace(status core.BuildStatus, transition core.Transition) core.Workspace {
	job := core.JobSucceeded
	switch status {
	case core.StatusFailed:
		job = core.JobFailed
	case core.StatusPending:
		job = core.JobPending
	case core.StatusStarting, core.StatusStopping, core.StatusDeleting:
		job = core.JobRunning
	case core.StatusCanceling:
		job = core.JobCanceling
	case core.StatusCanceled:
		job = core.JobCanceled
	}
	return core.Workspace{
		ID:                      "ws-1",
		Name:                    "dev",
		OwnerName:               "alice",
		TemplateID:              "tpl-1",
		TemplateActiveVersionID: "v2",
		LatestBuild: core.WorkspaceBuild{
			ID:                "b-1",
			TemplateVersionID: "v1",
			Transition:        transition,
			Status:            status,
			JobStatus:         job,
		},
	}
}

func newTestOrchestrator(t *testing.T, fc *fakeClient, perms core.Permissions) *Orchestrator {
	t.Helper()
	o, err := New(fc, Options{Workspace: fc.workspace, Permissions: perms})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

var allPerms = core.Permissions{UpdateWorkspace: true, UpdateTemplate: true, ViewDeploymentValues: true}

func TestNew_RequiresWorkspace(t *testing.T) {
	if _, err := New(&fakeClient{}, Options{}); !errors.Is(err, ErrNoWorkspace) {
		t.Fatalf("expected ErrNoWorkspace, got %v", err)
	}
}

func TestRestart_CapturesTriggerTimeParameters(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusRunning, core.TransitionStart)}
	o := newTestOrchestrator(t, fc, allPerms)
	ctx := context.Background()

	params := []core.WorkspaceBuildParameter{{Name: "cpu", Value: "4"}}
	if err := o.RequestRestart(params); err != nil {
		t.Fatalf("RequestRestart: %v", err)
	}
	params[0].Value = "8"

	d, ok := o.View().Dialog.(RestartDialog)
	if !ok {
		t.Fatalf("expected restart dialog, got %T", o.View().Dialog)
	}
	if d.BuildParameters[0].Value != "4" {
		t.Fatalf("dialog parameters changed after trigger: %+v", d.BuildParameters)
	}

	if err := o.ConfirmRestart(ctx); err != nil {
		t.Fatalf("ConfirmRestart: %v", err)
	}
	calls := fc.mutations()
	if len(calls) != 1 || calls[0].method != "restart" {
		t.Fatalf("expected one restart, got %+v", calls)
	}
	if len(calls[0].params) != 1 || calls[0].params[0].Value != "4" {
		t.Fatalf("restart called with %+v", calls[0].params)
	}
	if o.View().Dialog != nil {
		t.Fatal("dialog still open after confirm")
	}
	if err := o.ConfirmRestart(ctx); !errors.Is(err, ErrNoDialog) {
		t.Fatalf("second confirm: expected ErrNoDialog, got %v", err)
	}
	if n := len(fc.mutations()); n != 1 {
		t.Fatalf("restart invoked %d times", n)
	}
}

func TestRestart_CancelPerformsNoMutation(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusRunning, core.TransitionStart)}
	o := newTestOrchestrator(t, fc, allPerms)

	if err := o.RequestRestart(nil); err != nil {
		t.Fatalf("RequestRestart: %v", err)
	}
	o.CancelDialog()
	if o.View().Dialog != nil {
		t.Fatal("dialog still open after cancel")
	}
	if calls := fc.mutations(); len(calls) != 0 {
		t.Fatalf("cancel performed mutations: %+v", calls)
	}
}

func TestRestart_RejectedWhileBuilding(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusStarting, core.TransitionStart)}
	o := newTestOrchestrator(t, fc, allPerms)
	if err := o.RequestRestart(nil); !errors.Is(err, ErrNotRestartable) {
		t.Fatalf("expected ErrNotRestartable, got %v", err)
	}
}

func TestDialogs_AtMostOneOpen(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusRunning, core.TransitionStart)}
	o := newTestOrchestrator(t, fc, allPerms)

	if err := o.RequestRestart(nil); err != nil {
		t.Fatal(err)
	}
	o.RequestDelete()
	if _, ok := o.View().Dialog.(DeleteDialog); !ok {
		t.Fatalf("expected delete dialog, got %T", o.View().Dialog)
	}
	if err := o.ConfirmRestart(context.Background()); !errors.Is(err, ErrNoDialog) {
		t.Fatalf("restart confirmed while delete dialog open: %v", err)
	}
}

func TestDelete_Orphan(t *testing.T) {
	ctx := context.Background()

	t.Run("permitted", func(t *testing.T) {
		fc := &fakeClient{workspace: testWorkspace(core.StatusStopped, core.TransitionStop)}
		o := newTestOrchestrator(t, fc, allPerms)
		o.RequestDelete()
		if err := o.ConfirmDelete(ctx, true); err != nil {
			t.Fatalf("ConfirmDelete: %v", err)
		}
		calls := fc.mutations()
		if len(calls) != 1 || calls[0].method != "delete" || !calls[0].opts.Orphan {
			t.Fatalf("unexpected calls %+v", calls)
		}
	})

	t.Run("not permitted", func(t *testing.T) {
		fc := &fakeClient{workspace: testWorkspace(core.StatusStopped, core.TransitionStop)}
		o := newTestOrchestrator(t, fc, core.Permissions{UpdateWorkspace: true})
		o.RequestDelete()
		if err := o.ConfirmDelete(ctx, true); !errors.Is(err, ErrNotPermitted) {
			t.Fatalf("expected ErrNotPermitted, got %v", err)
		}
		if _, ok := o.View().Dialog.(DeleteDialog); !ok {
			t.Fatal("delete dialog closed on rejected orphan")
		}
		if err := o.ConfirmDelete(ctx, false); err != nil {
			t.Fatalf("plain delete: %v", err)
		}
		calls := fc.mutations()
		if len(calls) != 1 || calls[0].opts.Orphan {
			t.Fatalf("unexpected calls %+v", calls)
		}
	})
}

func TestUpdate_RequiresPermission(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusRunning, core.TransitionStart)}
	o := newTestOrchestrator(t, fc, core.Permissions{})
	if err := o.RequestUpdate(); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}
	if o.View().Dialog != nil {
		t.Fatal("dialog opened without permission")
	}
}

func TestUpdate_MissingParametersOpensRecovery(t *testing.T) {
	missing := []core.TemplateVersionParameter{{Name: "region", Required: true}}
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusRunning, core.TransitionStart),
		errs: map[string]error{
			"update": &core.MissingBuildParametersError{Parameters: missing, VersionID: "v2"},
		},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	ctx := context.Background()

	if err := o.RequestUpdate(); err != nil {
		t.Fatal(err)
	}
	if err := o.ConfirmUpdate(ctx); err != nil {
		t.Fatal(err)
	}

	v := o.View()
	if v.UpdateParameters == nil {
		t.Fatal("parameter dialog not opened")
	}
	if len(v.UpdateParameters.Parameters) != 1 || v.UpdateParameters.Parameters[0].Name != "region" {
		t.Fatalf("dialog parameters %+v", v.UpdateParameters.Parameters)
	}
	if v.Errors.BuildError != nil {
		t.Fatalf("missing parameters leaked into build error: %v", v.Errors.BuildError)
	}

	delete(fc.errs, "update")
	supplied := []core.WorkspaceBuildParameter{{Name: "region", Value: "eu"}}
	if err := o.SubmitParameters(ctx, ActionUpdate, supplied); err != nil {
		t.Fatalf("SubmitParameters: %v", err)
	}
	calls := fc.mutations()
	if len(calls) != 2 || calls[0].params != nil || calls[1].params[0].Value != "eu" {
		t.Fatalf("unexpected update calls %+v", calls)
	}
	if o.View().UpdateParameters != nil {
		t.Fatal("parameter dialog still open after success")
	}
}

func TestUpdate_RemoteErrorFillsBanner(t *testing.T) {
	remote := core.NewAppError(core.ErrInternal, "boom")
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusRunning, core.TransitionStart),
		errs:      map[string]error{"update": remote},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	ctx := context.Background()

	_ = o.RequestUpdate()
	_ = o.ConfirmUpdate(ctx)

	v := o.View()
	if v.UpdateParameters != nil {
		t.Fatal("parameter dialog opened for remote failure")
	}
	if !errors.Is(v.Errors.BuildError, remote) {
		t.Fatalf("build error = %v", v.Errors.BuildError)
	}
	if err := o.SubmitParameters(ctx, ActionUpdate, nil); !errors.Is(err, ErrNoRecovery) {
		t.Fatalf("expected ErrNoRecovery, got %v", err)
	}
}

func TestChangeVersion_ResubmitUsesCapturedVersion(t *testing.T) {
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusRunning, core.TransitionStart),
		versions: []core.TemplateVersion{
			{ID: "v1", Name: "one"},
			{ID: "v2", Name: "two"},
			{ID: "v3", Name: "three"},
		},
		errs: map[string]error{
			"change_version": &core.MissingBuildParametersError{
				Parameters: []core.TemplateVersionParameter{{Name: "gpu"}},
				VersionID:  "v3",
			},
		},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	ctx := context.Background()

	if err := o.RequestChangeVersion(ctx); err != nil {
		t.Fatalf("RequestChangeVersion: %v", err)
	}
	d, ok := o.View().Dialog.(ChangeVersionDialog)
	if !ok {
		t.Fatalf("expected picker, got %T", o.View().Dialog)
	}
	if d.Versions[0].ID != "v3" || d.Default == nil || d.Default.ID != "v1" {
		t.Fatalf("picker not newest-first with latest build preselected: %+v", d)
	}

	if err := o.ConfirmChangeVersion(ctx, "v3"); err != nil {
		t.Fatal(err)
	}
	req := o.View().ChangeVersionParameters
	if req == nil || req.VersionID != "v3" || req.Parameters[0].Name != "gpu" {
		t.Fatalf("unexpected recovery %+v", req)
	}

	// The picker is reopened and moved elsewhere; resubmission must still
	// target v3.
	if err := o.RequestChangeVersion(ctx); err != nil {
		t.Fatal(err)
	}
	o.CancelDialog()

	delete(fc.errs, "change_version")
	if err := o.SubmitParameters(ctx, ActionChangeVersion, []core.WorkspaceBuildParameter{{Name: "gpu", Value: "1"}}); err != nil {
		t.Fatalf("SubmitParameters: %v", err)
	}
	calls := fc.mutations()
	last := calls[len(calls)-1]
	if last.method != "change_version" || last.versionID != "v3" || last.params[0].Value != "1" {
		t.Fatalf("resubmitted with %+v", last)
	}
}

func TestChangeVersion_RequiresTemplatePermission(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusRunning, core.TransitionStart)}
	o := newTestOrchestrator(t, fc, core.Permissions{UpdateWorkspace: true})
	if err := o.RequestChangeVersion(context.Background()); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}
	if o.View().CanChangeVersions {
		t.Fatal("CanChangeVersions without template permission")
	}
}

func TestDismissParameters_ClearsFailure(t *testing.T) {
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusRunning, core.TransitionStart),
		errs: map[string]error{
			"update": &core.MissingBuildParametersError{Parameters: []core.TemplateVersionParameter{{Name: "x"}}},
		},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	_ = o.RequestUpdate()
	_ = o.ConfirmUpdate(context.Background())
	if err := o.DismissParameters(ActionUpdate); err != nil {
		t.Fatal(err)
	}
	if o.View().UpdateParameters != nil {
		t.Fatal("dialog still open after dismiss")
	}
	if err := o.DismissParameters(ActionStart); !errors.Is(err, ErrNoRecovery) {
		t.Fatalf("expected ErrNoRecovery, got %v", err)
	}
}

func TestRetryBuild(t *testing.T) {
	tests := []struct {
		transition core.Transition
		debug      bool
		method     string
	}{
		{core.TransitionStart, false, "start"},
		{core.TransitionStart, true, "start"},
		{core.TransitionStop, true, "stop"},
		{core.TransitionDelete, false, "delete"},
	}
	for _, tt := range tests {
		fc := &fakeClient{workspace: testWorkspace(core.StatusFailed, tt.transition)}
		o := newTestOrchestrator(t, fc, allPerms)
		if err := o.RetryBuild(context.Background(), tt.debug); err != nil {
			t.Fatalf("RetryBuild: %v", err)
		}
		calls := fc.mutations()
		if len(calls) != 1 || calls[0].method != tt.method {
			t.Fatalf("%s retry: got %+v", tt.transition, calls)
		}
		wantLevel := core.LogLevelDefault
		if tt.debug {
			wantLevel = core.LogLevelDebug
		}
		if calls[0].opts.LogLevel != wantLevel {
			t.Errorf("%s retry debug=%v: log level %q", tt.transition, tt.debug, calls[0].opts.LogLevel)
		}
		if calls[0].opts.Orphan {
			t.Errorf("%s retry set orphan", tt.transition)
		}
	}
}

func TestRetryBuild_OnlyWhenFailed(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusRunning, core.TransitionStart)}
	o := newTestOrchestrator(t, fc, allPerms)
	if err := o.RetryBuild(context.Background(), false); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable, got %v", err)
	}
}

func TestActivate_FailureNotifies(t *testing.T) {
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusStopped, core.TransitionStop),
		errs:      map[string]error{"activate": core.NewAppError(core.ErrForbidden, "not allowed")},
	}
	var notes []string
	o, err := New(fc, Options{
		Workspace: fc.workspace,
		Notify:    func(m string) { notes = append(notes, m) },
	})
	if err != nil {
		t.Fatal(err)
	}
	o.Activate(context.Background())
	if len(notes) != 1 || notes[0] != "not allowed" {
		t.Fatalf("notifications %v", notes)
	}
	if o.View().Errors.BuildError != nil {
		t.Fatal("activate failure reached the build banner")
	}

	fc.errs["activate"] = errors.New("connection reset")
	o.Activate(context.Background())
	if notes[1] != "Error activating workspace." {
		t.Fatalf("fallback message %q", notes[1])
	}
}

func TestCancelBuild(t *testing.T) {
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusStarting, core.TransitionStart),
		errs:      map[string]error{"cancel": core.NewAppError(core.ErrConflictNotCancelable, "too late")},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	if err := o.CancelBuild(context.Background()); err != nil {
		t.Fatalf("CancelBuild: %v", err)
	}
	calls := fc.mutations()
	if len(calls) != 1 || calls[0].buildID != "b-1" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	v := o.View()
	if v.Errors.CancellationError == nil || v.Errors.BuildError != nil {
		t.Fatalf("errors %+v", v.Errors)
	}

	idle := &fakeClient{workspace: testWorkspace(core.StatusStopped, core.TransitionStop)}
	o = newTestOrchestrator(t, idle, allPerms)
	if err := o.CancelBuild(context.Background()); !errors.Is(err, ErrNotCancelable) {
		t.Fatalf("expected ErrNotCancelable, got %v", err)
	}
}

func TestBuildErrorPrecedence(t *testing.T) {
	startErr := errors.New("start failed")
	stopErr := errors.New("stop failed")
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusStopped, core.TransitionStop),
		errs:      map[string]error{"start": startErr, "stop": stopErr},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	ctx := context.Background()
	o.Stop(ctx)
	o.Start(ctx, nil)
	if got := o.View().Errors.BuildError; !errors.Is(got, startErr) {
		t.Fatalf("build error = %v, want start error first", got)
	}

	delete(fc.errs, "start")
	o.Start(ctx, nil)
	if got := o.View().Errors.BuildError; !errors.Is(got, stopErr) {
		t.Fatalf("build error = %v, want stop error after start succeeded", got)
	}
}

func TestView_FaviconAndLogs(t *testing.T) {
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusStarting, core.TransitionStart),
		logs: []core.BuildLog{
			{ID: 1, BuildID: "b-1", Output: "init"},
			{ID: 2, BuildID: "b-1", Output: "apply"},
		},
		debugMode: true,
	}
	o, err := New(fc, Options{
		Workspace:   fc.workspace,
		Permissions: allPerms,
		AmbientDark: func() bool { return true },
	})
	if err != nil {
		t.Fatal(err)
	}
	o.Load(context.Background())

	v := o.View()
	if v.Favicon.State != core.FaviconRunning || v.Favicon.Theme != core.FaviconLight {
		t.Fatalf("favicon %+v", v.Favicon)
	}
	if !v.ShowBuildLogs || len(v.BuildLogs) != 2 {
		t.Fatalf("logs shown=%v n=%d", v.ShowBuildLogs, len(v.BuildLogs))
	}
	if !v.CanAutostart || !v.CanRetryDebugMode || v.SSHPrefix != "wsa." {
		t.Fatalf("derived flags %+v", v)
	}
	if v.Title != "alice/dev" {
		t.Fatalf("title %q", v.Title)
	}

	fc.logs = append(fc.logs, core.BuildLog{ID: 3, BuildID: "b-1", Output: "done"})
	if err := o.RefreshLogs(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(o.View().BuildLogs); n != 3 {
		t.Fatalf("expected incremental logs, got %d", n)
	}
}

func TestView_LogsHiddenWhenSettled(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusRunning, core.TransitionStart)}
	o := newTestOrchestrator(t, fc, allPerms)
	o.Load(context.Background())
	v := o.View()
	if v.ShowBuildLogs || v.BuildLogs != nil {
		t.Fatal("logs shown for a settled build")
	}
	if v.CanRetryDebugMode {
		t.Fatal("debug mode without deployment config")
	}
}

func TestLoad_BuildsError(t *testing.T) {
	listErr := errors.New("db down")
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusRunning, core.TransitionStart),
		errs:      map[string]error{"list_builds": listErr},
	}
	o := newTestOrchestrator(t, fc, core.Permissions{})
	o.Load(context.Background())
	if !errors.Is(o.View().Errors.GetBuildsError, listErr) {
		t.Fatalf("builds error %v", o.View().Errors.GetBuildsError)
	}
}

func TestMutation_RefreshesWorkspace(t *testing.T) {
	fc := &fakeClient{workspace: testWorkspace(core.StatusStopped, core.TransitionStop)}
	o := newTestOrchestrator(t, fc, allPerms)

	fc.mu.Lock()
	fc.workspace = testWorkspace(core.StatusPending, core.TransitionStart)
	fc.workspace.LatestBuild.ID = "b-2"
	fc.mu.Unlock()

	o.Start(context.Background(), nil)
	if got := o.View().Workspace.LatestBuild.ID; got != "b-2" {
		t.Fatalf("workspace not refreshed, latest build %s", got)
	}
}

func TestStart_MissingParametersReportedAsFailure(t *testing.T) {
	missing := []core.TemplateVersionParameter{{Name: "region", Required: true}}
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusStopped, core.TransitionStop),
		errs: map[string]error{
			"start": &core.MissingBuildParametersError{Parameters: missing, VersionID: "v1"},
		},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	ctx := context.Background()

	o.Start(ctx, nil)
	f := o.LastFailure(ActionStart)
	if f == nil || f.Kind != FailureMissingParameters {
		t.Fatalf("expected missing-parameters failure, got %+v", f)
	}
	if len(f.Parameters) != 1 || f.Parameters[0].Name != "region" || f.VersionID != "v1" {
		t.Fatalf("unexpected failure %+v", f)
	}
	v := o.View()
	var banner *core.MissingBuildParametersError
	if !errors.As(v.Errors.BuildError, &banner) || banner.Parameters[0].Name != "region" {
		t.Fatalf("start has no parameter dialog, expected a build error, got %v", v.Errors.BuildError)
	}
	if v.UpdateParameters != nil || v.ChangeVersionParameters != nil {
		t.Fatal("start failure opened another action's parameter dialog")
	}

	delete(fc.errs, "start")
	o.Start(ctx, []core.WorkspaceBuildParameter{{Name: "region", Value: "eu"}})
	if f := o.LastFailure(ActionStart); f != nil {
		t.Fatalf("failure not cleared after success: %+v", f)
	}
	if err := o.View().Errors.BuildError; err != nil {
		t.Fatalf("build error not cleared after success: %v", err)
	}
}

func TestRestart_MissingParametersFillsBanner(t *testing.T) {
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusRunning, core.TransitionStart),
		errs: map[string]error{
			"restart": fmt.Errorf("start: %w", &core.MissingBuildParametersError{
				Parameters: []core.TemplateVersionParameter{{Name: "region", Required: true}},
				VersionID:  "v1",
			}),
		},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	ctx := context.Background()

	if err := o.RequestRestart(nil); err != nil {
		t.Fatal(err)
	}
	if err := o.ConfirmRestart(ctx); err != nil {
		t.Fatal(err)
	}

	v := o.View()
	var missing *core.MissingBuildParametersError
	if !errors.As(v.Errors.BuildError, &missing) {
		t.Fatalf("expected the missing parameters in the build error, got %v", v.Errors.BuildError)
	}
	if v.Dialog != nil || v.UpdateParameters != nil || v.ChangeVersionParameters != nil {
		t.Fatalf("restart failure opened a dialog: %+v", v)
	}
	if f := o.LastFailure(ActionRestart); f == nil || f.Kind != FailureMissingParameters {
		t.Fatalf("unexpected failure %+v", f)
	}
	if err := o.SubmitParameters(ctx, ActionRestart, nil); !errors.Is(err, ErrNoRecovery) {
		t.Fatalf("expected ErrNoRecovery, got %v", err)
	}
}

func TestChangeVersion_RemoteErrorFillsBanner(t *testing.T) {
	remote := core.NewAppError(core.ErrInternal, "boom")
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusRunning, core.TransitionStart),
		versions: []core.TemplateVersion{
			{ID: "v1", Name: "one"},
			{ID: "v2", Name: "two"},
		},
		errs: map[string]error{"change_version": remote},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	ctx := context.Background()

	if err := o.RequestChangeVersion(ctx); err != nil {
		t.Fatalf("RequestChangeVersion: %v", err)
	}
	if err := o.ConfirmChangeVersion(ctx, "v2"); err != nil {
		t.Fatal(err)
	}

	v := o.View()
	if v.ChangeVersionParameters != nil {
		t.Fatal("parameter dialog opened for remote failure")
	}
	if !errors.Is(v.Errors.BuildError, remote) {
		t.Fatalf("build error = %v", v.Errors.BuildError)
	}
	if err := o.SubmitParameters(ctx, ActionChangeVersion, nil); !errors.Is(err, ErrNoRecovery) {
		t.Fatalf("expected ErrNoRecovery, got %v", err)
	}
}

func TestCanAutostart_UntilResolved(t *testing.T) {
	fc := &fakeClient{
		workspace: testWorkspace(core.StatusStopped, core.TransitionStop),
		errs:      map[string]error{"resolve_autostart": errors.New("unreachable")},
	}
	o := newTestOrchestrator(t, fc, allPerms)
	if !o.View().CanAutostart {
		t.Fatal("autostart disallowed before it was resolved")
	}
	o.Load(context.Background())
	if !o.View().CanAutostart {
		t.Fatal("failed resolution disallowed autostart")
	}

	delete(fc.errs, "resolve_autostart")
	fc.mismatch = true
	o.Load(context.Background())
	if o.View().CanAutostart {
		t.Fatal("parameter mismatch still allows autostart")
	}
}
