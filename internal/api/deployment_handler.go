package api

import (
	"net/http"

	"github.com/lzjever/mbos-wsa/internal/api/middleware"
	"github.com/lzjever/mbos-wsa/internal/core"
)

// GetDeploymentConfig exposes deployment values to actors allowed to see them.
func (a *API) GetDeploymentConfig(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r)
	if !core.ResolvePermissions(actor.Name, actor.Roles, core.Workspace{}).ViewDeploymentValues {
		WriteError(w, core.NewAppError(core.ErrForbidden, "not allowed to view deployment values"))
		return
	}
	WriteJSON(w, http.StatusOK, core.DeploymentConfig{
		EnableTerraformDebugMode: a.cfg.EnableTerraformDebugMode,
	})
}

// GetSSHConfig returns the hostname prefix workspaces are reachable under.
func (a *API) GetSSHConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, core.SSHConfig{HostnamePrefix: a.cfg.SSHHostnamePrefix})
}
