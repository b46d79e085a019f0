package orchestrator

import (
	"time"

	"github.com/lzjever/mbos-wsa/internal/core"
)

// Dialog is the confirmation currently awaiting the user. A nil Dialog means
// none is open; holding a single value keeps the blocking dialogs mutually
// exclusive.
type Dialog interface {
	isDialog()
}

// RestartDialog asks before stopping and starting the workspace again with
// the parameters captured when the restart was requested.
type RestartDialog struct {
	BuildParameters []core.WorkspaceBuildParameter
}

// DeleteDialog asks before deleting. CanOrphan is set when the user may
// skip teardown.
type DeleteDialog struct {
	WorkspaceName string
	CreatedAt     time.Time
	CanOrphan     bool
}

// UpdateDialog asks before moving the workspace to the template's active
// version. Message is the active version's message, if known.
type UpdateDialog struct {
	Message string
}

// ChangeVersionDialog is the version picker. Versions are newest first and
// Default is the version of the latest build, if still listed.
type ChangeVersionDialog struct {
	Versions []core.TemplateVersion
	Default  *core.TemplateVersion
}

func (RestartDialog) isDialog()       {}
func (DeleteDialog) isDialog()        {}
func (UpdateDialog) isDialog()        {}
func (ChangeVersionDialog) isDialog() {}

// ParameterRequest is an open parameter-collection dialog, derived from an
// action that failed for lack of build parameters.
type ParameterRequest struct {
	Action     Action
	Parameters []core.TemplateVersionParameter
	VersionID  string
}
