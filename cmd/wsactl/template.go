package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lzjever/mbos-wsa/internal/core"
)

var tplActivate bool

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Template commands",
}

var tplPushCmd = &cobra.Command{
	Use:   "push <file.yaml>",
	Short: "Create a template from a YAML definition",
	Long: `Create a template from a YAML definition holding its name, display_name
and first version (name, message, parameters, resources).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req core.CreateTemplateRequest
		if err := readYAML(args[0], &req); err != nil {
			return err
		}
		if err := core.ValidateTemplateParameters(req.Version.Parameters); err != nil {
			return err
		}
		tpl, err := newClient().CreateTemplate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), tpl)
	},
}

var tplPushVersionCmd = &cobra.Command{
	Use:   "push-version <template-id> <file.yaml>",
	Short: "Add a version to a template from a YAML definition",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req core.CreateTemplateVersionRequest
		if err := readYAML(args[1], &req); err != nil {
			return err
		}
		if cmd.Flags().Changed("activate") {
			req.Activate = tplActivate
		}
		if err := core.ValidateTemplateParameters(req.Parameters); err != nil {
			return err
		}
		v, err := newClient().CreateTemplateVersion(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), v)
	},
}

var tplShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Show a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, err := newClient().GetTemplate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), tpl)
	},
}

var tplVersionsCmd = &cobra.Command{
	Use:   "versions <template-id>",
	Short: "List a template's versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		versions, err := newClient().ListTemplateVersions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), versions)
	},
}

var tplParamsCmd = &cobra.Command{
	Use:   "params <version-id>",
	Short: "List a template version's parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := newClient().GetTemplateVersionParameters(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), params)
	},
}

var tplActivateCmd = &cobra.Command{
	Use:   "activate <template-id> <version-id>",
	Short: "Make a version the template's active version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().SetActiveVersion(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Template %s now uses version %s.\n", args[0], args[1])
		return nil
	},
}

func init() {
	tplPushVersionCmd.Flags().BoolVar(&tplActivate, "activate", false, "Make the new version active")
	templateCmd.AddCommand(tplPushCmd, tplPushVersionCmd, tplShowCmd, tplVersionsCmd, tplParamsCmd, tplActivateCmd)
	rootCmd.AddCommand(templateCmd)
}

func readYAML(path string, out interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
