package view

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/orchestrator"
	"github.com/lzjever/mbos-wsa/internal/theme"
)

func newPlain() *Renderer {
	v := New(&bytes.Buffer{}, true)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }
	return v
}

func TestLatencyBadge(t *testing.T) {
	v := newPlain()
	tests := []struct {
		latency time.Duration
		loading bool
		want    string
	}{
		{42 * time.Millisecond, true, "Loading latency..."},
		{0, false, "Latency not available"},
		{42*time.Millisecond + 400*time.Microsecond, false, "42ms"},
		{1500 * time.Millisecond, false, "1500ms"},
	}
	for _, tt := range tests {
		if got := v.LatencyBadge(tt.latency, tt.loading); got != tt.want {
			t.Errorf("LatencyBadge(%s, %v) = %q, want %q", tt.latency, tt.loading, got, tt.want)
		}
	}
}

func TestStatusRole(t *testing.T) {
	for _, s := range core.AllBuildStatuses {
		if _, ok := theme.Light.Roles[StatusRole(s)]; !ok {
			t.Errorf("status %q maps to unknown role %q", s, StatusRole(s))
		}
	}
	if StatusRole(core.StatusFailed) != theme.RoleError {
		t.Error("failed builds should use the error role")
	}
}

func TestWorkspace(t *testing.T) {
	v := newPlain()
	created := time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)
	m := orchestrator.View{
		Title: "alice/dev",
		Workspace: core.Workspace{
			Name:         "dev",
			OwnerName:    "alice",
			TemplateName: "docker",
			Outdated:     true,
			LatestBuild: core.WorkspaceBuild{
				BuildNumber: 3,
				Status:      core.StatusFailed,
				Transition:  core.TransitionStart,
				JobError:    "apply failed",
				CreatedAt:   created,
			},
		},
		Favicon:       core.Favicon{State: core.FaviconError, Theme: core.FaviconLight},
		UpdateMessage: "Bumps the image.",
		SSHPrefix:     "wsa.",
		Errors: orchestrator.WorkspaceErrors{
			BuildError: core.NewAppError(core.ErrConflictBuildActive, "build #4 is still running"),
		},
		Dialog: orchestrator.DeleteDialog{WorkspaceName: "dev", CreatedAt: created, CanOrphan: true},
		UpdateParameters: &orchestrator.ParameterRequest{
			Action:     orchestrator.ActionUpdate,
			Parameters: []core.TemplateVersionParameter{{Name: "region", DisplayName: "Region"}},
		},
		Builds: []core.WorkspaceBuild{
			{BuildNumber: 3, Transition: core.TransitionStart, Status: core.StatusFailed, CreatedAt: created},
		},
		HasMoreBuilds: true,
		ShowBuildLogs: true,
		BuildLogs:     []core.BuildLog{{Stage: "apply", Level: "error", Output: "apply failed"}},
	}

	out := v.Workspace(m)
	for _, want := range []string{
		"alice/dev",
		"failed",
		"/favicons/favicon-error-light.svg",
		"A new template version is available. Bumps the image.",
		"ssh wsa.dev",
		"Build error: build #4 is still running",
		"Delete dev?",
		"1 hour ago",
		"Orphaning",
		"update needs values for 1 parameter",
		"Region",
		"#3",
		"more builds available",
		"[apply] apply failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDialog(t *testing.T) {
	v := newPlain()
	if v.Dialog(nil) != "" {
		t.Error("nil dialog rendered")
	}

	v2 := core.TemplateVersion{ID: "v2", Name: "v2", Message: "newer"}
	v1 := core.TemplateVersion{ID: "v1", Name: "v1"}
	out := v.Dialog(orchestrator.ChangeVersionDialog{
		Versions: []core.TemplateVersion{v2, v1},
		Default:  &v1,
	})
	if !strings.Contains(out, "* v1") || !strings.Contains(out, "  v2") {
		t.Errorf("default version not marked:\n%s", out)
	}
	if strings.Index(out, "v2") > strings.Index(out, "v1") {
		t.Errorf("versions reordered:\n%s", out)
	}

	if out := v.Dialog(orchestrator.UpdateDialog{Message: "Bumps the image."}); !strings.Contains(out, "Bumps the image.") {
		t.Errorf("update message missing:\n%s", out)
	}
	if out := v.Dialog(orchestrator.RestartDialog{}); !strings.Contains(out, "Restart workspace?") {
		t.Errorf("restart prompt missing:\n%s", out)
	}
}

func TestBanners_PlainErrors(t *testing.T) {
	v := newPlain()
	got := v.banners(orchestrator.WorkspaceErrors{
		GetBuildsError:    errors.New("connection refused"),
		CancellationError: core.NewAppError(core.ErrConflictNotCancelable, "build is succeeded and cannot be canceled"),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 banners, got %v", got)
	}
	if !strings.Contains(got[0], "cannot be canceled") || !strings.Contains(got[1], "connection refused") {
		t.Errorf("unexpected banners %v", got)
	}
}

func TestLogs_Empty(t *testing.T) {
	if got := newPlain().Logs(nil); !strings.Contains(got, "No logs yet.") {
		t.Errorf("got %q", got)
	}
}
