package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lzjever/mbos-wsa/internal/client"
	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/observability"
	"github.com/lzjever/mbos-wsa/internal/orchestrator"
	"github.com/lzjever/mbos-wsa/internal/view"
)

var cliLog *zap.Logger

func logger() *zap.Logger {
	if cliLog == nil {
		cliLog = observability.NewCLILogger(logLevel)
	}
	return cliLog
}

func newClient() *client.Client {
	return client.New(apiURL, client.Options{Actor: actor, Roles: roles, Log: logger()})
}

func newRenderer(w io.Writer) *view.Renderer {
	return view.New(w, noColor || output != "table")
}

// session is one workspace page: the orchestrator loaded for a workspace,
// plus the terminal it renders to and prompts on.
type session struct {
	api    *client.Client
	orch   *orchestrator.Orchestrator
	view   *view.Renderer
	prompt *Prompter
	out    io.Writer
	errOut io.Writer
}

func openSession(ctx context.Context, cmd *cobra.Command, id string) (*session, error) {
	api := newClient()
	ws, err := api.GetWorkspace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	tpl, err := api.GetTemplate(ctx, ws.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	perms, err := api.GetPermissions(ctx, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("get permissions: %w", err)
	}

	s := &session{
		api:    api,
		view:   newRenderer(cmd.OutOrStdout()),
		prompt: stdinPrompter(cmd.ErrOrStderr()),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}
	s.orch, err = orchestrator.New(api, orchestrator.Options{
		Workspace:   ws,
		Template:    tpl,
		Permissions: perms,
		AmbientDark: s.view.HasDarkBackground,
		Notify:      func(msg string) { fmt.Fprintln(s.errOut, msg) },
		Log:         logger(),
	})
	if err != nil {
		return nil, err
	}
	s.orch.Load(ctx)
	return s, nil
}

// show prints the page, or the workspace itself in json/yaml mode.
func (s *session) show() error {
	v := s.orch.View()
	if output != "table" {
		return printResult(s.out, v.Workspace)
	}
	fmt.Fprint(s.out, s.view.Workspace(v))
	return nil
}

// finish reports the outcome of action: any recorded failure becomes the
// command's error, otherwise the page is shown, after following the build
// when wait is set.
func (s *session) finish(ctx context.Context, action orchestrator.Action, wait bool) error {
	if f := s.orch.LastFailure(action); f != nil {
		if v := s.orch.View(); v.Errors.BuildError != nil || v.Errors.CancellationError != nil {
			fmt.Fprint(s.out, s.view.Workspace(v))
		}
		return fmt.Errorf("%s failed: %w", action, f.Err)
	}
	if wait {
		return s.follow(ctx)
	}
	return s.show()
}

// follow streams new log lines until the latest build settles. Lines the
// page stops showing once the build succeeds are fetched directly.
func (s *session) follow(ctx context.Context) error {
	var (
		buildID string
		lastID  int64
	)
	emit := func(logs []core.BuildLog) {
		var fresh []core.BuildLog
		for _, l := range logs {
			if l.ID > lastID {
				fresh = append(fresh, l)
				lastID = l.ID
			}
		}
		if len(fresh) > 0 {
			fmt.Fprint(s.out, s.view.Logs(fresh))
		}
	}
	err := s.orch.Follow(ctx, followInterval, func(v orchestrator.View) {
		if v.Workspace.LatestBuild.ID != buildID {
			buildID = v.Workspace.LatestBuild.ID
			lastID = 0
		}
		emit(v.BuildLogs)
	})
	if err != nil {
		return err
	}
	if buildID != "" {
		rest, err := s.api.GetBuildLogs(ctx, buildID, lastID)
		if err != nil {
			logger().Warn("fetch remaining logs failed", zap.Error(err))
		}
		emit(rest)
	}
	return s.show()
}

var followInterval = time.Second
