package orchestrator

import (
	"errors"

	"github.com/lzjever/mbos-wsa/internal/core"
)

type Action string

const (
	ActionStart         Action = "start"
	ActionStop          Action = "stop"
	ActionDelete        Action = "delete"
	ActionUpdate        Action = "update"
	ActionRestart       Action = "restart"
	ActionChangeVersion Action = "change_version"
	ActionActivate      Action = "activate"
	ActionCancel        Action = "cancel"
)

var allActions = []Action{
	ActionStart, ActionStop, ActionDelete, ActionUpdate,
	ActionRestart, ActionChangeVersion, ActionActivate, ActionCancel,
}

type FailureKind int

const (
	// FailureRemote is any failure the user cannot fix from the page.
	FailureRemote FailureKind = iota + 1
	// FailureMissingParameters is recoverable by supplying parameters.
	FailureMissingParameters
)

func (k FailureKind) String() string {
	switch k {
	case FailureRemote:
		return "remote"
	case FailureMissingParameters:
		return "missing_parameters"
	}
	return "unknown"
}

// Failure is the last error of one action, classified at the call boundary.
type Failure struct {
	Action     Action
	Kind       FailureKind
	Err        error
	Parameters []core.TemplateVersionParameter
	VersionID  string
}

func classify(action Action, err error) *Failure {
	if err == nil {
		return nil
	}
	var missing *core.MissingBuildParametersError
	if errors.As(err, &missing) {
		return &Failure{
			Action:     action,
			Kind:       FailureMissingParameters,
			Err:        err,
			Parameters: missing.Parameters,
			VersionID:  missing.VersionID,
		}
	}
	return &Failure{Action: action, Kind: FailureRemote, Err: err}
}

// slot holds the in-flight/error state owned by one action.
type slot struct {
	inFlight int
	failure  *Failure
}

func (s *slot) remoteErr() error {
	if s.failure == nil || s.failure.Kind != FailureRemote {
		return nil
	}
	return s.failure.Err
}

// bannerErr is the error shown in the build banner. Missing parameters
// surface there too unless the action offers a parameter dialog.
func (s *slot) bannerErr() error {
	if s.failure == nil {
		return nil
	}
	if s.failure.Kind == FailureMissingParameters && hasParameterDialog(s.failure.Action) {
		return nil
	}
	return s.failure.Err
}

func hasParameterDialog(a Action) bool {
	return a == ActionUpdate || a == ActionChangeVersion
}

func (s *slot) parameterRequest() *ParameterRequest {
	if s.failure == nil || s.failure.Kind != FailureMissingParameters {
		return nil
	}
	return &ParameterRequest{
		Action:     s.failure.Action,
		Parameters: append([]core.TemplateVersionParameter(nil), s.failure.Parameters...),
		VersionID:  s.failure.VersionID,
	}
}
