package core

import "time"

type Template struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DisplayName     string    `json:"display_name,omitempty"`
	ActiveVersionID string    `json:"active_version_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TemplateVersion struct {
	ID         string              `json:"id"`
	TemplateID string              `json:"template_id"`
	Name       string              `json:"name"`
	Message    string              `json:"message"`
	Resources  []WorkspaceResource `json:"resources"`
	CreatedAt  time.Time           `json:"created_at"`
}

type DeploymentConfig struct {
	EnableTerraformDebugMode bool `json:"enable_terraform_debug_mode"`
}

type SSHConfig struct {
	HostnamePrefix string `json:"hostname_prefix"`
}
