// Package view renders the workspace orchestrator's view-model for a
// terminal, coloring it with the light theme's roles.
package view

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/muesli/termenv"

	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/orchestrator"
	"github.com/lzjever/mbos-wsa/internal/theme"
)

type Renderer struct {
	r     *lipgloss.Renderer
	theme theme.Theme
	now   func() time.Time
}

// New returns a renderer writing for w. Colors are dropped when plain is set
// or w is not a terminal.
func New(w io.Writer, plain bool) *Renderer {
	r := lipgloss.NewRenderer(w)
	if plain {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{r: r, theme: theme.Light, now: time.Now}
}

// HasDarkBackground reports whether the terminal background is dark.
func (v *Renderer) HasDarkBackground() bool {
	return v.r.HasDarkBackground()
}

func (v *Renderer) role(name theme.RoleName) lipgloss.Style {
	c := v.theme.Role(name)
	return v.r.NewStyle().Foreground(lipgloss.Color(c.Outline))
}

func (v *Renderer) muted() lipgloss.Style {
	return v.r.NewStyle().Foreground(lipgloss.Color(v.theme.SecondaryText))
}

// StatusRole is the theme role a build status is drawn with.
func StatusRole(s core.BuildStatus) theme.RoleName {
	switch s {
	case core.StatusRunning:
		return theme.RoleSuccess
	case core.StatusStarting, core.StatusStopping, core.StatusPending:
		return theme.RoleActive
	case core.StatusCanceling, core.StatusCanceled:
		return theme.RoleWarning
	case core.StatusFailed:
		return theme.RoleError
	case core.StatusDeleting, core.StatusDeleted:
		return theme.RoleDanger
	default:
		return theme.RoleInfo
	}
}

func (v *Renderer) status(s core.BuildStatus) string {
	label := string(s)
	if label == "" {
		label = "never built"
	}
	return v.role(StatusRole(s)).Bold(true).Render(label)
}

// LatencyBadge renders a measured latency. A zero latency reads as not
// available.
func (v *Renderer) LatencyBadge(latency time.Duration, loading bool) string {
	if loading {
		return v.muted().Render("Loading latency...")
	}
	color := v.theme.LatencyColor(latency)
	if _, ok := theme.LatencyRole(latency); !ok {
		return v.r.NewStyle().Foreground(lipgloss.Color(color)).Render("Latency not available")
	}
	ms := float64(latency) / float64(time.Millisecond)
	return v.r.NewStyle().Foreground(lipgloss.Color(color)).Render(fmt.Sprintf("%.0fms", ms))
}

// Workspace renders the page: header, banners, open dialogs, builds and
// logs.
func (v *Renderer) Workspace(m orchestrator.View) string {
	var b strings.Builder
	ws := m.Workspace

	b.WriteString(v.r.NewStyle().Bold(true).Render(m.Title))
	b.WriteString("  ")
	b.WriteString(v.status(ws.LatestBuild.Status))
	b.WriteString("\n")

	b.WriteString(v.muted().Render(fmt.Sprintf("template %s  build #%d  favicon %s",
		ws.TemplateName, ws.LatestBuild.BuildNumber, m.Favicon.Href("svg"))))
	b.WriteString("\n")
	if ws.Outdated {
		msg := "A new template version is available."
		if m.UpdateMessage != "" {
			msg += " " + m.UpdateMessage
		}
		b.WriteString(v.role(theme.RoleNotice).Render(msg) + "\n")
	}
	if ws.DormantAt != nil {
		b.WriteString(v.role(theme.RoleWarning).Render(
			"Workspace is dormant since "+humanize.RelTime(*ws.DormantAt, v.now(), "ago", "from now")) + "\n")
	}
	if m.SSHPrefix != "" {
		b.WriteString(v.muted().Render("ssh "+m.SSHPrefix+ws.Name) + "\n")
	}
	if len(m.InFlight) > 0 {
		names := make([]string, len(m.InFlight))
		for i, a := range m.InFlight {
			names[i] = string(a)
		}
		b.WriteString(v.role(theme.RoleActive).Render("in progress: "+strings.Join(names, ", ")) + "\n")
	}

	for _, banner := range v.banners(m.Errors) {
		b.WriteString(banner + "\n")
	}
	if d := v.Dialog(m.Dialog); d != "" {
		b.WriteString(d + "\n")
	}
	for _, req := range []*orchestrator.ParameterRequest{m.UpdateParameters, m.ChangeVersionParameters} {
		if req != nil {
			b.WriteString(v.ParameterRequest(*req) + "\n")
		}
	}

	if len(m.Builds) > 0 {
		b.WriteString("\n" + v.Builds(m.Builds))
		if m.HasMoreBuilds {
			b.WriteString(v.muted().Render("  ...more builds available") + "\n")
		}
	}
	if m.ShowBuildLogs {
		b.WriteString("\n" + v.Logs(m.BuildLogs))
	}
	return b.String()
}

func (v *Renderer) banners(errs orchestrator.WorkspaceErrors) []string {
	var out []string
	style := v.role(theme.RoleError)
	if errs.BuildError != nil {
		out = append(out, style.Render("Build error: "+core.ErrorMessage(errs.BuildError, errs.BuildError.Error())))
	}
	if errs.CancellationError != nil {
		out = append(out, style.Render("Cancel error: "+core.ErrorMessage(errs.CancellationError, errs.CancellationError.Error())))
	}
	if errs.GetBuildsError != nil {
		out = append(out, style.Render("Could not load builds: "+core.ErrorMessage(errs.GetBuildsError, errs.GetBuildsError.Error())))
	}
	return out
}

// Dialog renders the open confirmation, or "" when none is open.
func (v *Renderer) Dialog(d orchestrator.Dialog) string {
	box := v.r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(v.theme.L1.Outline)).
		Padding(0, 1)

	switch d := d.(type) {
	case orchestrator.RestartDialog:
		return box.Render("Restart workspace?\nThe workspace is stopped and started again.")
	case orchestrator.DeleteDialog:
		body := fmt.Sprintf("Delete %s?\nCreated %s. This cannot be undone.",
			d.WorkspaceName, humanize.RelTime(d.CreatedAt, v.now(), "ago", "from now"))
		if d.CanOrphan {
			body += "\nOrphaning leaves the workspace's resources in place."
		}
		return box.BorderForeground(lipgloss.Color(v.theme.Role(theme.RoleDanger).Outline)).Render(body)
	case orchestrator.UpdateDialog:
		body := "Update workspace to the active template version?"
		if d.Message != "" {
			body += "\n" + d.Message
		}
		return box.Render(body)
	case orchestrator.ChangeVersionDialog:
		var lines []string
		lines = append(lines, "Change version:")
		for _, tv := range d.Versions {
			marker := "  "
			if d.Default != nil && d.Default.ID == tv.ID {
				marker = "* "
			}
			line := marker + tv.Name
			if tv.Message != "" {
				line += "  " + v.muted().Render(tv.Message)
			}
			lines = append(lines, line)
		}
		return box.Render(strings.Join(lines, "\n"))
	}
	return ""
}

// ParameterRequest renders the list of values an action is waiting for.
func (v *Renderer) ParameterRequest(req orchestrator.ParameterRequest) string {
	lines := []string{v.role(theme.RoleWarning).Render(
		fmt.Sprintf("%s needs values for %s", req.Action, english.Plural(len(req.Parameters), "parameter", "parameters")))}
	for _, p := range req.Parameters {
		line := "  " + p.Label()
		if p.Description != "" {
			line += ": " + v.muted().Render(p.Description)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Builds renders the build history as a table.
func (v *Renderer) Builds(builds []core.WorkspaceBuild) string {
	var b strings.Builder
	header := v.r.NewStyle().Bold(true)
	b.WriteString(header.Render(fmt.Sprintf("%-6s %-10s %-12s %s", "BUILD", "ACTION", "STATUS", "CREATED")) + "\n")
	for _, build := range builds {
		status := v.role(StatusRole(build.Status)).Render(fmt.Sprintf("%-12s", build.Status))
		fmt.Fprintf(&b, "#%-5d %-10s %s %s\n",
			build.BuildNumber, build.Transition, status,
			humanize.RelTime(build.CreatedAt, v.now(), "ago", "from now"))
	}
	return b.String()
}

// Logs renders build log lines, coloring warnings and errors.
func (v *Renderer) Logs(logs []core.BuildLog) string {
	if len(logs) == 0 {
		return v.muted().Render("No logs yet.") + "\n"
	}
	var b strings.Builder
	for _, l := range logs {
		line := fmt.Sprintf("[%s] %s", l.Stage, l.Output)
		switch l.Level {
		case "error":
			line = v.role(theme.RoleError).Render(line)
		case "warn":
			line = v.role(theme.RoleWarning).Render(line)
		case "debug":
			line = v.muted().Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
