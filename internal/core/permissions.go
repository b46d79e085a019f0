package core

import "strings"

const (
	RoleAdmin         = "admin"
	RoleTemplateAdmin = "template-admin"
)

type Permissions struct {
	UpdateWorkspace      bool `json:"update_workspace"`
	UpdateTemplate       bool `json:"update_template"`
	ViewDeploymentValues bool `json:"view_deployment_values"`
}

// ResolvePermissions computes what actor, holding roles, may do to ws.
func ResolvePermissions(actor string, roles []string, ws Workspace) Permissions {
	has := func(role string) bool {
		for _, r := range roles {
			if strings.EqualFold(strings.TrimSpace(r), role) {
				return true
			}
		}
		return false
	}
	admin := has(RoleAdmin)
	return Permissions{
		UpdateWorkspace:      admin || (actor != "" && actor == ws.OwnerName),
		UpdateTemplate:       admin || has(RoleTemplateAdmin),
		ViewDeploymentValues: admin,
	}
}

// ParseRoles splits a comma separated role list.
func ParseRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
