package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/orchestrator"
)

const maxParameterRounds = 3

var (
	wsParams    []string
	wsWait      bool
	wsOrphan    bool
	wsDebug     bool
	wsVersion   string
	wsFollow    bool
	wsListLimit int
	wsCursor    string
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Workspace commands",
}

var wsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListWorkspaces(cmd.Context(), wsCursor, wsListLimit)
		if err != nil {
			return err
		}
		if err := printResult(cmd.OutOrStdout(), list.Workspaces); err != nil {
			return err
		}
		if list.NextCursor != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "More workspaces: --cursor %s\n", list.NextCursor)
		}
		return nil
	},
}

var wsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a workspace with its builds and open errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), cmd, args[0])
		if err != nil {
			return err
		}
		return s.show()
	},
}

var wsCreateCmd = &cobra.Command{
	Use:   "create <owner> <name> <template-id>",
	Short: "Create a workspace and queue its first start",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		params, err := parseParams(wsParams)
		if err != nil {
			return err
		}
		api := newClient()
		prompt := stdinPrompter(cmd.ErrOrStderr())
		req := core.CreateWorkspaceRequest{
			OwnerName:         args[0],
			Name:              args[1],
			TemplateID:        args[2],
			TemplateVersionID: wsVersion,
		}
		for round := 0; ; round++ {
			req.RichParameterValues = params
			ws, err := api.CreateWorkspace(ctx, req)
			var missing *core.MissingBuildParametersError
			if !errors.As(err, &missing) || round == maxParameterRounds {
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), ws)
			}
			more, err := supplyParameters(prompt, missing.Parameters, params)
			if err != nil {
				return err
			}
			params = core.MergeParameters(params, more)
		}
	},
}

var wsStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		params, err := parseParams(wsParams)
		if err != nil {
			return err
		}
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		s.orch.Start(ctx, params)
		for round := 0; round < maxParameterRounds; round++ {
			f := s.orch.LastFailure(orchestrator.ActionStart)
			if f == nil || f.Kind != orchestrator.FailureMissingParameters {
				break
			}
			more, err := supplyParameters(s.prompt, f.Parameters, params)
			if err != nil {
				return err
			}
			params = core.MergeParameters(params, more)
			s.orch.Start(ctx, params)
		}
		if f := s.orch.LastFailure(orchestrator.ActionStart); f != nil && f.Kind == orchestrator.FailureMissingParameters {
			return f.Err
		}
		return s.finish(ctx, orchestrator.ActionStart, wsWait)
	},
}

var wsStopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		s.orch.Stop(ctx)
		return s.finish(ctx, orchestrator.ActionStop, wsWait)
	},
}

var wsRestartCmd = &cobra.Command{
	Use:   "restart <id>",
	Short: "Stop and start a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		params, err := parseParams(wsParams)
		if err != nil {
			return err
		}
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		if err := s.orch.RequestRestart(params); err != nil {
			return err
		}
		ok, err := s.confirmDialog("Restart workspace?")
		if err != nil || !ok {
			return err
		}
		if err := s.orch.ConfirmRestart(ctx); err != nil {
			return err
		}
		return s.finish(ctx, orchestrator.ActionRestart, wsWait)
	},
}

var wsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		s.orch.RequestDelete()
		if d, ok := s.orch.View().Dialog.(orchestrator.DeleteDialog); ok && wsOrphan && !d.CanOrphan {
			s.orch.CancelDialog()
			return fmt.Errorf("orphan delete: %w", orchestrator.ErrNotPermitted)
		}
		ok, err := s.confirmDialog(fmt.Sprintf("Delete workspace %s?", s.orch.View().Title))
		if err != nil || !ok {
			return err
		}
		if err := s.orch.ConfirmDelete(ctx, wsOrphan); err != nil {
			return err
		}
		return s.finish(ctx, orchestrator.ActionDelete, wsWait)
	},
}

var wsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a workspace to its template's active version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		preset, err := parseParams(wsParams)
		if err != nil {
			return err
		}
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		if !s.orch.View().Workspace.Outdated {
			fmt.Fprintln(s.errOut, "Workspace is on the active template version.")
			return nil
		}
		if err := s.orch.RequestUpdate(); err != nil {
			return err
		}
		ok, err := s.confirmDialog("Update workspace?")
		if err != nil || !ok {
			return err
		}
		if err := s.orch.ConfirmUpdate(ctx); err != nil {
			return err
		}
		if err := s.recoverParameters(ctx, orchestrator.ActionUpdate, preset); err != nil {
			return err
		}
		return s.finish(ctx, orchestrator.ActionUpdate, wsWait)
	},
}

var wsChangeVersionCmd = &cobra.Command{
	Use:   "change-version <id>",
	Short: "Move a workspace to another template version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		preset, err := parseParams(wsParams)
		if err != nil {
			return err
		}
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		if err := s.orch.RequestChangeVersion(ctx); err != nil {
			return err
		}
		d, _ := s.orch.View().Dialog.(orchestrator.ChangeVersionDialog)
		versionID, err := s.pickVersion(d, wsVersion)
		if err != nil {
			s.orch.CancelDialog()
			return err
		}
		if err := s.orch.ConfirmChangeVersion(ctx, versionID); err != nil {
			return err
		}
		if err := s.recoverParameters(ctx, orchestrator.ActionChangeVersion, preset); err != nil {
			return err
		}
		return s.finish(ctx, orchestrator.ActionChangeVersion, wsWait)
	},
}

var wsActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Bring a dormant workspace back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		s.orch.Activate(ctx)
		return s.finish(ctx, orchestrator.ActionActivate, false)
	},
}

var wsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel the workspace's queued or running build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		if err := s.orch.CancelBuild(ctx); err != nil {
			return err
		}
		return s.finish(ctx, orchestrator.ActionCancel, wsWait)
	},
}

var wsRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Repeat the workspace's failed build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		v := s.orch.View()
		if wsDebug && !v.CanRetryDebugMode {
			return errors.New("debug retries are not enabled on this deployment")
		}
		if err := s.orch.RetryBuild(ctx, wsDebug); err != nil {
			return err
		}
		return s.finish(ctx, retryAction(v.Workspace.LatestBuild.Transition), wsWait)
	},
}

var wsLogsCmd = &cobra.Command{
	Use:   "logs <id>",
	Short: "Print the logs of the workspace's latest build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if wsFollow {
			s, err := openSession(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			return s.follow(ctx)
		}
		api := newClient()
		ws, err := api.GetWorkspace(ctx, args[0])
		if err != nil {
			return err
		}
		if ws.LatestBuild.ID == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "Workspace has no builds.")
			return nil
		}
		logs, err := api.GetBuildLogs(ctx, ws.LatestBuild.ID, 0)
		if err != nil {
			return err
		}
		if output != "table" {
			return printResult(cmd.OutOrStdout(), logs)
		}
		fmt.Fprint(cmd.OutOrStdout(), newRenderer(cmd.OutOrStdout()).Logs(logs))
		return nil
	},
}

var wsAuditCmd = &cobra.Command{
	Use:   "audit <id>",
	Short: "List the workspace's audit events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := newClient().ListAuditEvents(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), events)
	},
}

func init() {
	wsListCmd.Flags().IntVar(&wsListLimit, "limit", 25, "Page size")
	wsListCmd.Flags().StringVar(&wsCursor, "cursor", "", "Page cursor from a previous list")

	for _, c := range []*cobra.Command{wsCreateCmd, wsStartCmd, wsRestartCmd, wsUpdateCmd, wsChangeVersionCmd} {
		c.Flags().StringArrayVarP(&wsParams, "param", "p", nil, "Build parameter as name=value (repeatable)")
	}
	for _, c := range []*cobra.Command{wsStartCmd, wsStopCmd, wsRestartCmd, wsDeleteCmd, wsUpdateCmd, wsChangeVersionCmd, wsCancelCmd, wsRetryCmd} {
		c.Flags().BoolVarP(&wsWait, "wait", "w", false, "Follow the build logs until the build settles")
	}
	wsCreateCmd.Flags().StringVar(&wsVersion, "version", "", "Template version ID (default: the active version)")
	wsChangeVersionCmd.Flags().StringVar(&wsVersion, "version", "", "Target template version, by name or ID")
	wsDeleteCmd.Flags().BoolVar(&wsOrphan, "orphan", false, "Delete without destroying the workspace's resources")
	wsRetryCmd.Flags().BoolVar(&wsDebug, "debug", false, "Retry at debug log level")
	wsLogsCmd.Flags().BoolVarP(&wsFollow, "follow", "f", false, "Keep printing until the build settles")

	workspaceCmd.AddCommand(wsListCmd, wsShowCmd, wsCreateCmd, wsStartCmd, wsStopCmd, wsRestartCmd,
		wsDeleteCmd, wsUpdateCmd, wsChangeVersionCmd, wsActivateCmd, wsCancelCmd, wsRetryCmd,
		wsLogsCmd, wsAuditCmd)
	rootCmd.AddCommand(workspaceCmd)
}

// confirmDialog shows the open dialog and asks question. Declining closes
// the dialog without any mutation.
func (s *session) confirmDialog(question string) (bool, error) {
	fmt.Fprintln(s.errOut, s.view.Dialog(s.orch.View().Dialog))
	ok, err := s.prompt.Confirm(question)
	if err != nil || !ok {
		s.orch.CancelDialog()
		if err == nil {
			fmt.Fprintln(s.errOut, "Canceled.")
		}
		return false, err
	}
	return true, nil
}

// pickVersion resolves want, a version name or ID, against the picker. With
// no want the user chooses, starting from the current version.
func (s *session) pickVersion(d orchestrator.ChangeVersionDialog, want string) (string, error) {
	if len(d.Versions) == 0 {
		return "", errors.New("template has no versions")
	}
	if want != "" {
		for _, v := range d.Versions {
			if v.ID == want || v.Name == want {
				return v.ID, nil
			}
		}
		return "", fmt.Errorf("template version %q not found", want)
	}
	if !s.prompt.interactive {
		return "", fmt.Errorf("%w: pass --version", ErrNotInteractive)
	}
	names := make([]string, len(d.Versions))
	def := -1
	for i, v := range d.Versions {
		names[i] = v.Name
		if v.Message != "" {
			names[i] += "  " + v.Message
		}
		if d.Default != nil && d.Default.ID == v.ID {
			def = i
		}
	}
	i, err := s.prompt.Choose("Change version:", names, def)
	if err != nil {
		return "", err
	}
	return d.Versions[i].ID, nil
}

// recoverParameters answers the action's parameter dialog, from preset
// values first and the prompt for the rest, until the action stops asking.
func (s *session) recoverParameters(ctx context.Context, action orchestrator.Action, preset []core.WorkspaceBuildParameter) error {
	for round := 0; round < maxParameterRounds; round++ {
		req := parameterRequest(s.orch.View(), action)
		if req == nil {
			return nil
		}
		fmt.Fprintln(s.errOut, s.view.ParameterRequest(*req))
		params, err := supplyParameters(s.prompt, req.Parameters, preset)
		if err != nil {
			s.orch.DismissParameters(action)
			return err
		}
		if err := s.orch.SubmitParameters(ctx, action, params); err != nil {
			return err
		}
	}
	if parameterRequest(s.orch.View(), action) != nil {
		s.orch.DismissParameters(action)
		return fmt.Errorf("%s still needs parameters", action)
	}
	return nil
}

func parameterRequest(v orchestrator.View, action orchestrator.Action) *orchestrator.ParameterRequest {
	switch action {
	case orchestrator.ActionUpdate:
		return v.UpdateParameters
	case orchestrator.ActionChangeVersion:
		return v.ChangeVersionParameters
	}
	return nil
}

// supplyParameters returns a value for every parameter in needed, taking
// preset values where given and prompting for the others.
func supplyParameters(p *Prompter, needed []core.TemplateVersionParameter, preset []core.WorkspaceBuildParameter) ([]core.WorkspaceBuildParameter, error) {
	given := make(map[string]string, len(preset))
	for _, v := range preset {
		given[v.Name] = v.Value
	}
	var (
		out []core.WorkspaceBuildParameter
		ask []core.TemplateVersionParameter
	)
	for _, param := range needed {
		if v, ok := given[param.Name]; ok && (v != "" || !param.Required) {
			out = append(out, core.WorkspaceBuildParameter{Name: param.Name, Value: v})
			continue
		}
		ask = append(ask, param)
	}
	if len(ask) == 0 {
		return out, nil
	}
	asked, err := p.AskParameters(ask)
	if err != nil {
		return nil, err
	}
	return append(out, asked...), nil
}

func retryAction(t core.Transition) orchestrator.Action {
	switch t {
	case core.TransitionStop:
		return orchestrator.ActionStop
	case core.TransitionDelete:
		return orchestrator.ActionDelete
	}
	return orchestrator.ActionStart
}
