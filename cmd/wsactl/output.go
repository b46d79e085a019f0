package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/lzjever/mbos-wsa/internal/core"
)

func printResult(w io.Writer, v interface{}) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return printYAML(w, v)
	}
	printTable(w, v)
	return nil
}

// printYAML goes through JSON so the YAML keys match the API's field names.
func printYAML(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func printTable(out io.Writer, v interface{}) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	now := time.Now()
	switch data := v.(type) {
	case []core.Workspace:
		if len(data) == 0 {
			fmt.Fprintln(out, "No workspaces found.")
			return
		}
		fmt.Fprintln(w, "ID\tNAME\tTEMPLATE\tSTATUS\tOUTDATED\tUPDATED")
		for _, ws := range data {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n",
				ws.ID, ws.FullName(), ws.TemplateName, statusLabel(ws.LatestBuild.Status), ws.Outdated, ago(ws.UpdatedAt, now))
		}
	case core.Workspace:
		fmt.Fprintf(w, "ID:\t%s\n", data.ID)
		fmt.Fprintf(w, "Name:\t%s\n", data.FullName())
		fmt.Fprintf(w, "Template:\t%s (%s)\n", data.TemplateName, data.TemplateID)
		fmt.Fprintf(w, "Status:\t%s\n", statusLabel(data.LatestBuild.Status))
		fmt.Fprintf(w, "Outdated:\t%v\n", data.Outdated)
		if data.DormantAt != nil {
			fmt.Fprintf(w, "Dormant:\t%s\n", ago(*data.DormantAt, now))
		}
		fmt.Fprintf(w, "Created:\t%s\n", ago(data.CreatedAt, now))
	case core.WorkspaceBuild:
		fmt.Fprintf(w, "Build:\t#%d (%s)\n", data.BuildNumber, data.ID)
		fmt.Fprintf(w, "Transition:\t%s\n", data.Transition)
		fmt.Fprintf(w, "Status:\t%s\n", data.Status)
		if data.JobError != "" {
			fmt.Fprintf(w, "Error:\t%s\n", data.JobError)
		}
	case core.Template:
		fmt.Fprintf(w, "ID:\t%s\n", data.ID)
		fmt.Fprintf(w, "Name:\t%s\n", data.Name)
		if data.DisplayName != "" {
			fmt.Fprintf(w, "Display name:\t%s\n", data.DisplayName)
		}
		fmt.Fprintf(w, "Active version:\t%s\n", data.ActiveVersionID)
	case core.TemplateVersion:
		fmt.Fprintf(w, "ID:\t%s\n", data.ID)
		fmt.Fprintf(w, "Name:\t%s\n", data.Name)
		fmt.Fprintf(w, "Template:\t%s\n", data.TemplateID)
		fmt.Fprintf(w, "Resources:\t%d\n", len(data.Resources))
	case []core.TemplateVersion:
		if len(data) == 0 {
			fmt.Fprintln(out, "No versions found.")
			return
		}
		fmt.Fprintln(w, "ID\tNAME\tMESSAGE\tCREATED")
		for _, tv := range data {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tv.ID, tv.Name, truncate(tv.Message, 40), ago(tv.CreatedAt, now))
		}
	case []core.AuditEvent:
		if len(data) == 0 {
			fmt.Fprintln(out, "No audit events found.")
			return
		}
		fmt.Fprintln(w, "ID\tACTION\tACTOR\tBUILD\tWHEN")
		for _, e := range data {
			build := ""
			if e.BuildID != nil {
				build = *e.BuildID
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.EventID, e.Action, string(e.Actor), build, ago(e.Ts, now))
		}
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.Encode(v)
	}
	w.Flush()
}

func statusLabel(s core.BuildStatus) string {
	if s == "" {
		return "never built"
	}
	return string(s)
}

func ago(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
