package orchestrator

import (
	"context"
	"fmt"

	"github.com/lzjever/mbos-wsa/internal/core"
)

// Start builds the workspace with the start transition. No confirmation.
func (o *Orchestrator) Start(ctx context.Context, params []core.WorkspaceBuildParameter) {
	o.mutate(ctx, ActionStart, func(ctx context.Context, ws core.Workspace) error {
		_, err := o.client.StartWorkspace(ctx, ws, core.BuildOptions{BuildParameters: params})
		return err
	})
}

// Stop builds the workspace with the stop transition. No confirmation.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.mutate(ctx, ActionStop, func(ctx context.Context, ws core.Workspace) error {
		_, err := o.client.StopWorkspace(ctx, ws, core.BuildOptions{})
		return err
	})
}

// RequestRestart opens the restart confirmation holding params as they are
// now.
func (o *Orchestrator) RequestRestart(params []core.WorkspaceBuildParameter) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !core.CanRestart(o.workspace.LatestBuild) {
		return ErrNotRestartable
	}
	o.dialog = RestartDialog{BuildParameters: append([]core.WorkspaceBuildParameter(nil), params...)}
	return nil
}

// ConfirmRestart closes the restart confirmation and restarts with the
// parameters it captured.
func (o *Orchestrator) ConfirmRestart(ctx context.Context) error {
	o.mu.Lock()
	d, ok := o.dialog.(RestartDialog)
	if !ok {
		o.mu.Unlock()
		return ErrNoDialog
	}
	o.dialog = nil
	o.mu.Unlock()

	o.mutate(ctx, ActionRestart, func(ctx context.Context, ws core.Workspace) error {
		return o.client.RestartWorkspace(ctx, ws, d.BuildParameters)
	})
	return nil
}

// RequestDelete opens the delete confirmation.
func (o *Orchestrator) RequestDelete() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dialog = DeleteDialog{
		WorkspaceName: o.workspace.Name,
		CreatedAt:     o.workspace.CreatedAt,
		CanOrphan:     o.perms.UpdateTemplate,
	}
}

// ConfirmDelete closes the delete confirmation and deletes the workspace.
// Orphaning requires permission to update the template.
func (o *Orchestrator) ConfirmDelete(ctx context.Context, orphan bool) error {
	o.mu.Lock()
	d, ok := o.dialog.(DeleteDialog)
	if !ok {
		o.mu.Unlock()
		return ErrNoDialog
	}
	if orphan && !d.CanOrphan {
		o.mu.Unlock()
		return fmt.Errorf("orphan delete: %w", ErrNotPermitted)
	}
	o.dialog = nil
	o.mu.Unlock()

	o.mutate(ctx, ActionDelete, func(ctx context.Context, ws core.Workspace) error {
		_, err := o.client.DeleteWorkspace(ctx, ws, core.BuildOptions{Orphan: orphan})
		return err
	})
	return nil
}

// RequestUpdate opens the update confirmation.
func (o *Orchestrator) RequestUpdate() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.perms.UpdateWorkspace {
		return fmt.Errorf("update: %w", ErrNotPermitted)
	}
	o.dialog = UpdateDialog{Message: o.updateMessage}
	return nil
}

// ConfirmUpdate closes the update confirmation and updates the workspace to
// the active template version without new parameters.
func (o *Orchestrator) ConfirmUpdate(ctx context.Context) error {
	o.mu.Lock()
	if _, ok := o.dialog.(UpdateDialog); !ok {
		o.mu.Unlock()
		return ErrNoDialog
	}
	o.dialog = nil
	o.mu.Unlock()

	o.update(ctx, nil)
	return nil
}

func (o *Orchestrator) update(ctx context.Context, params []core.WorkspaceBuildParameter) {
	o.mutate(ctx, ActionUpdate, func(ctx context.Context, ws core.Workspace) error {
		_, err := o.client.UpdateWorkspace(ctx, ws, params)
		return err
	})
}

// RequestChangeVersion loads the template's versions and opens the version
// picker.
func (o *Orchestrator) RequestChangeVersion(ctx context.Context) error {
	o.mu.Lock()
	allowed := o.perms.UpdateTemplate
	ws := o.workspace
	o.mu.Unlock()
	if !allowed {
		return fmt.Errorf("change version: %w", ErrNotPermitted)
	}

	versions, err := o.client.ListTemplateVersions(ctx, ws.TemplateID)
	if err != nil {
		return fmt.Errorf("list template versions: %w", err)
	}
	newestFirst := make([]core.TemplateVersion, len(versions))
	for i, v := range versions {
		newestFirst[len(versions)-1-i] = v
	}
	d := ChangeVersionDialog{Versions: newestFirst}
	for i := range newestFirst {
		if newestFirst[i].ID == ws.LatestBuild.TemplateVersionID {
			d.Default = &newestFirst[i]
			break
		}
	}

	o.mu.Lock()
	o.dialog = d
	o.mu.Unlock()
	return nil
}

// ConfirmChangeVersion closes the picker and moves the workspace to
// versionID.
func (o *Orchestrator) ConfirmChangeVersion(ctx context.Context, versionID string) error {
	o.mu.Lock()
	if _, ok := o.dialog.(ChangeVersionDialog); !ok {
		o.mu.Unlock()
		return ErrNoDialog
	}
	o.dialog = nil
	o.mu.Unlock()

	o.changeVersion(ctx, versionID, nil)
	return nil
}

func (o *Orchestrator) changeVersion(ctx context.Context, versionID string, params []core.WorkspaceBuildParameter) {
	o.mutate(ctx, ActionChangeVersion, func(ctx context.Context, ws core.Workspace) error {
		_, err := o.client.ChangeWorkspaceVersion(ctx, ws, versionID, params)
		return err
	})
}

// CancelDialog closes whichever confirmation is open without acting.
func (o *Orchestrator) CancelDialog() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dialog = nil
}

// SubmitParameters answers the parameter dialog of action and re-issues it.
// A version change is re-issued against the version that reported the
// missing parameters.
func (o *Orchestrator) SubmitParameters(ctx context.Context, action Action, params []core.WorkspaceBuildParameter) error {
	f := o.failure(action)
	if f == nil || f.Kind != FailureMissingParameters {
		return ErrNoRecovery
	}
	switch action {
	case ActionUpdate:
		o.update(ctx, params)
	case ActionChangeVersion:
		o.changeVersion(ctx, f.VersionID, params)
	default:
		return ErrNoRecovery
	}
	return nil
}

// DismissParameters closes the parameter dialog of action, clearing its
// error.
func (o *Orchestrator) DismissParameters(action Action) error {
	if !hasParameterDialog(action) {
		return ErrNoRecovery
	}
	o.reset(action)
	return nil
}

// Activate brings a dormant workspace back. Failures become a notification.
func (o *Orchestrator) Activate(ctx context.Context) {
	o.mutate(ctx, ActionActivate, func(ctx context.Context, ws core.Workspace) error {
		return o.client.ActivateWorkspace(ctx, ws)
	})
	if f := o.failure(ActionActivate); f != nil {
		o.notify(core.ErrorMessage(f.Err, "Error activating workspace."))
	}
}

// CancelBuild cancels the latest build while it is queued or running.
func (o *Orchestrator) CancelBuild(ctx context.Context) error {
	o.mu.Lock()
	build := o.workspace.LatestBuild
	o.mu.Unlock()
	if !core.IsCancelable(build) {
		return ErrNotCancelable
	}
	o.mutate(ctx, ActionCancel, func(ctx context.Context, _ core.Workspace) error {
		return o.client.CancelBuild(ctx, build.ID)
	})
	return nil
}

// RetryBuild repeats the failed build's transition, at debug log level when
// debug is set.
func (o *Orchestrator) RetryBuild(ctx context.Context, debug bool) error {
	o.mu.Lock()
	build := o.workspace.LatestBuild
	o.mu.Unlock()
	if build.Status != core.StatusFailed {
		return ErrNotRetryable
	}

	opts := core.BuildOptions{}
	if debug {
		opts.LogLevel = core.LogLevelDebug
	}

	switch build.Transition {
	case core.TransitionStart:
		o.mutate(ctx, ActionStart, func(ctx context.Context, ws core.Workspace) error {
			_, err := o.client.StartWorkspace(ctx, ws, opts)
			return err
		})
	case core.TransitionStop:
		o.mutate(ctx, ActionStop, func(ctx context.Context, ws core.Workspace) error {
			_, err := o.client.StopWorkspace(ctx, ws, opts)
			return err
		})
	case core.TransitionDelete:
		o.mutate(ctx, ActionDelete, func(ctx context.Context, ws core.Workspace) error {
			_, err := o.client.DeleteWorkspace(ctx, ws, opts)
			return err
		})
	default:
		return fmt.Errorf("retry: unknown transition %q", build.Transition)
	}
	return nil
}
