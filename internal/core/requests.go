package core

// Request and response bodies shared by the API server and its client.

type CreateBuildRequest struct {
	Transition          Transition                `json:"transition"`
	TemplateVersionID   string                    `json:"template_version_id,omitempty"`
	RichParameterValues []WorkspaceBuildParameter `json:"rich_parameter_values,omitempty"`
	LogLevel            LogLevel                  `json:"log_level,omitempty"`
	Orphan              bool                      `json:"orphan,omitempty"`
}

type CreateWorkspaceRequest struct {
	Name                string                    `json:"name"`
	OwnerName           string                    `json:"owner_name"`
	TemplateID          string                    `json:"template_id"`
	TemplateVersionID   string                    `json:"template_version_id,omitempty"`
	RichParameterValues []WorkspaceBuildParameter `json:"rich_parameter_values,omitempty"`
}

type CreateTemplateVersionRequest struct {
	Name       string                     `json:"name" yaml:"name"`
	Message    string                     `json:"message" yaml:"message"`
	Parameters []TemplateVersionParameter `json:"parameters" yaml:"parameters"`
	Resources  []WorkspaceResource        `json:"resources" yaml:"resources"`
	Activate   bool                       `json:"activate,omitempty" yaml:"activate"`
}

type CreateTemplateRequest struct {
	Name        string                       `json:"name" yaml:"name"`
	DisplayName string                       `json:"display_name,omitempty" yaml:"display_name"`
	Version     CreateTemplateVersionRequest `json:"version" yaml:"version"`
}

type UpdateActiveVersionRequest struct {
	ID string `json:"id"`
}

type UpdateDormancyRequest struct {
	Dormant bool `json:"dormant"`
}

type ResolveAutostartResponse struct {
	ParameterMismatch bool `json:"parameter_mismatch"`
}

type WorkspaceList struct {
	Workspaces []Workspace `json:"workspaces"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type BuildList struct {
	Builds     []WorkspaceBuild `json:"builds"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code       ErrorCode                  `json:"code"`
	Message    string                     `json:"message"`
	Parameters []TemplateVersionParameter `json:"parameters,omitempty"`
	VersionID  string                     `json:"version_id,omitempty"`
}
