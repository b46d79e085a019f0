package core

import "time"

type Transition string

const (
	TransitionStart  Transition = "start"
	TransitionStop   Transition = "stop"
	TransitionDelete Transition = "delete"
)

func (t Transition) Valid() bool {
	switch t {
	case TransitionStart, TransitionStop, TransitionDelete:
		return true
	}
	return false
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobCanceling JobStatus = "canceling"
	JobCanceled  JobStatus = "canceled"
	JobFailed    JobStatus = "failed"
)

// IsTerminal returns true if the job will not change state again.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobCanceled, JobFailed:
		return true
	}
	return false
}

type BuildStatus string

const (
	StatusUndefined BuildStatus = ""
	StatusPending   BuildStatus = "pending"
	StatusStarting  BuildStatus = "starting"
	StatusRunning   BuildStatus = "running"
	StatusStopping  BuildStatus = "stopping"
	StatusStopped   BuildStatus = "stopped"
	StatusCanceling BuildStatus = "canceling"
	StatusCanceled  BuildStatus = "canceled"
	StatusDeleting  BuildStatus = "deleting"
	StatusDeleted   BuildStatus = "deleted"
	StatusFailed    BuildStatus = "failed"
)

// AllBuildStatuses lists every status, including the undefined one.
var AllBuildStatuses = []BuildStatus{
	StatusUndefined, StatusPending, StatusStarting, StatusRunning,
	StatusStopping, StatusStopped, StatusCanceling, StatusCanceled,
	StatusDeleting, StatusDeleted, StatusFailed,
}

// DeriveStatus computes the user-facing build status from the build's
// transition and the state of its provisioner job.
func DeriveStatus(transition Transition, job JobStatus) BuildStatus {
	switch job {
	case JobPending:
		return StatusPending
	case JobRunning:
		switch transition {
		case TransitionStart:
			return StatusStarting
		case TransitionStop:
			return StatusStopping
		case TransitionDelete:
			return StatusDeleting
		}
	case JobSucceeded:
		switch transition {
		case TransitionStart:
			return StatusRunning
		case TransitionStop:
			return StatusStopped
		case TransitionDelete:
			return StatusDeleted
		}
	case JobCanceling:
		return StatusCanceling
	case JobCanceled:
		return StatusCanceled
	case JobFailed:
		return StatusFailed
	}
	return StatusUndefined
}

type LogLevel string

const (
	LogLevelDefault LogLevel = ""
	LogLevelDebug   LogLevel = "debug"
)

func (l LogLevel) Valid() bool {
	return l == LogLevelDefault || l == LogLevelDebug
}

type WorkspaceResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type WorkspaceBuild struct {
	ID                string              `json:"id"`
	WorkspaceID       string              `json:"workspace_id"`
	BuildNumber       int32               `json:"build_number"`
	TemplateVersionID string              `json:"template_version_id"`
	Transition        Transition          `json:"transition"`
	Status            BuildStatus         `json:"status"`
	JobStatus         JobStatus           `json:"job_status"`
	JobError          string              `json:"job_error,omitempty"`
	LogLevel          LogLevel            `json:"log_level,omitempty"`
	Orphan            bool                `json:"orphan,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	StartedAt         *time.Time          `json:"started_at,omitempty"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	Resources         []WorkspaceResource `json:"resources"`
}

type Workspace struct {
	ID                      string         `json:"id"`
	Name                    string         `json:"name"`
	OwnerName               string         `json:"owner_name"`
	TemplateID              string         `json:"template_id"`
	TemplateName            string         `json:"template_name"`
	TemplateActiveVersionID string         `json:"template_active_version_id"`
	Outdated                bool           `json:"outdated"`
	DormantAt               *time.Time     `json:"dormant_at,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	LatestBuild             WorkspaceBuild `json:"latest_build"`
}

// FullName returns owner/name, the way workspaces are addressed in titles.
func (w Workspace) FullName() string {
	return w.OwnerName + "/" + w.Name
}

// HasJobError returns true if the latest build's job reported an error.
func HasJobError(w Workspace) bool {
	return w.LatestBuild.JobError != ""
}

// ShouldDisplayBuildLogs decides whether the build log panel is visible:
// on any job error and during every transient state.
func ShouldDisplayBuildLogs(w Workspace) bool {
	if HasJobError(w) {
		return true
	}
	switch w.LatestBuild.Status {
	case StatusCanceling, StatusDeleting, StatusPending, StatusStarting, StatusStopping:
		return true
	}
	return false
}

// IsCancelable returns true while the build is still queued or in progress.
func IsCancelable(b WorkspaceBuild) bool {
	switch b.Status {
	case StatusPending, StatusStarting, StatusStopping, StatusDeleting:
		return true
	}
	return false
}

type BuildLog struct {
	ID        int64     `json:"id"`
	BuildID   string    `json:"build_id"`
	CreatedAt time.Time `json:"created_at"`
	Level     string    `json:"level"`
	Stage     string    `json:"stage"`
	Output    string    `json:"output"`
}

// BuildOptions are the knobs of a single build request.
type BuildOptions struct {
	TemplateVersionID string
	BuildParameters   []WorkspaceBuildParameter
	LogLevel          LogLevel
	Orphan            bool
}

// CanRestart returns true once the latest build has settled, unless the
// workspace has been deleted.
func CanRestart(b WorkspaceBuild) bool {
	return b.JobStatus.IsTerminal() && b.Status != StatusDeleted
}
