package orchestrator

import "github.com/lzjever/mbos-wsa/internal/core"

// WorkspaceErrors is what the page shows as error banners.
type WorkspaceErrors struct {
	GetBuildsError    error
	BuildError        error
	CancellationError error
}

// View is a snapshot of everything the page renders.
type View struct {
	Title     string
	Workspace core.Workspace
	Template  core.Template
	Favicon   core.Favicon

	Dialog                  Dialog
	UpdateParameters        *ParameterRequest
	ChangeVersionParameters *ParameterRequest

	IsUpdating   bool
	IsRestarting bool
	InFlight     []Action

	CanUpdateWorkspace bool
	CanUpdateTemplate  bool
	CanChangeVersions  bool
	CanAutostart       bool
	CanRetryDebugMode  bool

	UpdateMessage string
	SSHPrefix     string
	Errors        WorkspaceErrors

	ShowBuildLogs bool
	BuildLogs     []core.BuildLog

	Builds        []core.WorkspaceBuild
	HasMoreBuilds bool
}

// buildErrorOrder is the precedence of remote errors in the build banner.
var buildErrorOrder = []Action{
	ActionRestart, ActionStart, ActionStop, ActionDelete, ActionUpdate, ActionChangeVersion,
}

// View returns the current view-model.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	ws := o.workspace
	v := View{
		Title:     ws.FullName(),
		Workspace: ws,
		Template:  o.template,
		Favicon: core.Favicon{
			State: core.FaviconForStatus(ws.LatestBuild.Status),
			Theme: o.faviconTheme,
		},
		Dialog:                  o.dialog,
		UpdateParameters:        o.slots[ActionUpdate].parameterRequest(),
		ChangeVersionParameters: o.slots[ActionChangeVersion].parameterRequest(),
		IsUpdating:              o.slots[ActionUpdate].inFlight > 0,
		IsRestarting:            o.slots[ActionRestart].inFlight > 0,
		CanUpdateWorkspace:      o.perms.UpdateWorkspace,
		CanUpdateTemplate:       o.perms.UpdateTemplate,
		CanChangeVersions:       o.perms.UpdateTemplate,
		CanAutostart:            o.canAutostart,
		CanRetryDebugMode:       o.debugMode,
		UpdateMessage:           o.updateMessage,
		SSHPrefix:               o.sshPrefix,
		ShowBuildLogs:           core.ShouldDisplayBuildLogs(ws),
		Builds:                  append([]core.WorkspaceBuild(nil), o.builds...),
		HasMoreBuilds:           o.buildsCursor != "",
	}

	for _, a := range allActions {
		if o.slots[a].inFlight > 0 {
			v.InFlight = append(v.InFlight, a)
		}
	}

	v.Errors.GetBuildsError = o.buildsErr
	for _, a := range buildErrorOrder {
		if err := o.slots[a].bannerErr(); err != nil {
			v.Errors.BuildError = err
			break
		}
	}
	v.Errors.CancellationError = o.slots[ActionCancel].remoteErr()

	if v.ShowBuildLogs && o.logsBuildID == ws.LatestBuild.ID {
		v.BuildLogs = append([]core.BuildLog(nil), o.logs...)
	}
	return v
}
