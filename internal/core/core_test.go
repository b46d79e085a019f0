package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		transition Transition
		job        JobStatus
		want       BuildStatus
	}{
		{TransitionStart, JobPending, StatusPending},
		{TransitionStart, JobRunning, StatusStarting},
		{TransitionStop, JobRunning, StatusStopping},
		{TransitionDelete, JobRunning, StatusDeleting},
		{TransitionStart, JobSucceeded, StatusRunning},
		{TransitionStop, JobSucceeded, StatusStopped},
		{TransitionDelete, JobSucceeded, StatusDeleted},
		{TransitionStop, JobCanceling, StatusCanceling},
		{TransitionStart, JobCanceled, StatusCanceled},
		{TransitionDelete, JobFailed, StatusFailed},
		{Transition("bogus"), JobRunning, StatusUndefined},
	}
	for _, tt := range tests {
		if got := DeriveStatus(tt.transition, tt.job); got != tt.want {
			t.Errorf("DeriveStatus(%s, %s) = %q, want %q", tt.transition, tt.job, got, tt.want)
		}
	}
}

func TestShouldDisplayBuildLogs(t *testing.T) {
	shown := map[BuildStatus]bool{
		StatusCanceling: true,
		StatusDeleting:  true,
		StatusPending:   true,
		StatusStarting:  true,
		StatusStopping:  true,
	}
	for _, s := range AllBuildStatuses {
		ws := Workspace{LatestBuild: WorkspaceBuild{Status: s}}
		if got := ShouldDisplayBuildLogs(ws); got != shown[s] {
			t.Errorf("status %q: got %v, want %v", s, got, shown[s])
		}
		ws.LatestBuild.JobError = "terraform exited 1"
		if !ShouldDisplayBuildLogs(ws) {
			t.Errorf("status %q with job error: logs hidden", s)
		}
	}
}

func TestFaviconForStatus_Total(t *testing.T) {
	want := map[BuildStatus]FaviconState{
		StatusUndefined: FaviconDefault,
		StatusPending:   FaviconDefault,
		StatusStarting:  FaviconRunning,
		StatusRunning:   FaviconSuccess,
		StatusStopping:  FaviconRunning,
		StatusStopped:   FaviconDefault,
		StatusCanceling: FaviconWarning,
		StatusCanceled:  FaviconDefault,
		StatusDeleting:  FaviconDefault,
		StatusDeleted:   FaviconDefault,
		StatusFailed:    FaviconError,
	}
	if len(want) != len(AllBuildStatuses) {
		t.Fatalf("table covers %d statuses, enum has %d", len(want), len(AllBuildStatuses))
	}
	for _, s := range AllBuildStatuses {
		first := FaviconForStatus(s)
		if first != want[s] {
			t.Errorf("status %q: got %q, want %q", s, first, want[s])
		}
		if again := FaviconForStatus(s); again != first {
			t.Errorf("status %q: unstable mapping %q then %q", s, first, again)
		}
	}
}

func TestFaviconThemeInverted(t *testing.T) {
	if FaviconThemeFor(true) != FaviconLight {
		t.Error("dark ambient should give a light icon")
	}
	if FaviconThemeFor(false) != FaviconDark {
		t.Error("light ambient should give a dark icon")
	}
	f := Favicon{State: FaviconError, Theme: FaviconLight}
	if got := f.Href("svg"); got != "/favicons/favicon-error-light.svg" {
		t.Errorf("unexpected href %s", got)
	}
}

func TestIsCancelable(t *testing.T) {
	for _, s := range AllBuildStatuses {
		want := s == StatusPending || s == StatusStarting || s == StatusStopping || s == StatusDeleting
		if got := IsCancelable(WorkspaceBuild{Status: s}); got != want {
			t.Errorf("status %q: got %v, want %v", s, got, want)
		}
	}
}

func TestMissingParameters(t *testing.T) {
	region := TemplateVersionParameter{
		Name: "region", Mutable: false, Required: true,
		Options: []ParameterOption{{Name: "EU", Value: "eu"}, {Name: "US", Value: "us"}},
	}
	cpu := TemplateVersionParameter{Name: "cpu", Mutable: true, Required: true}
	dotfiles := TemplateVersionParameter{Name: "dotfiles", Mutable: true, Required: false}
	templateParams := []TemplateVersionParameter{region, cpu, dotfiles}

	t.Run("all missing except optional", func(t *testing.T) {
		got := MissingParameters(nil, nil, templateParams)
		if len(got) != 2 || got[0].Name != "region" || got[1].Name != "cpu" {
			t.Fatalf("unexpected missing parameters: %+v", got)
		}
	})

	t.Run("old build supplies values", func(t *testing.T) {
		old := []WorkspaceBuildParameter{{Name: "region", Value: "eu"}, {Name: "cpu", Value: "2"}}
		if got := MissingParameters(old, nil, templateParams); len(got) != 0 {
			t.Fatalf("expected none missing, got %+v", got)
		}
	})

	t.Run("option removed", func(t *testing.T) {
		old := []WorkspaceBuildParameter{{Name: "region", Value: "ap"}, {Name: "cpu", Value: "2"}}
		got := MissingParameters(old, nil, templateParams)
		if len(got) != 1 || got[0].Name != "region" {
			t.Fatalf("expected region missing, got %+v", got)
		}
	})

	t.Run("new value overrides stale option", func(t *testing.T) {
		old := []WorkspaceBuildParameter{{Name: "region", Value: "ap"}, {Name: "cpu", Value: "2"}}
		next := []WorkspaceBuildParameter{{Name: "region", Value: "us"}}
		if got := MissingParameters(old, next, templateParams); len(got) != 0 {
			t.Fatalf("expected none missing, got %+v", got)
		}
	})
}

func TestMergeParameters(t *testing.T) {
	prev := []WorkspaceBuildParameter{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}
	next := []WorkspaceBuildParameter{{Name: "b", Value: "3"}, {Name: "c", Value: "4"}}
	got := MergeParameters(prev, next)
	want := []WorkspaceBuildParameter{{Name: "a", Value: "1"}, {Name: "b", Value: "3"}, {Name: "c", Value: "4"}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestValidateImmutable(t *testing.T) {
	tp := []TemplateVersionParameter{{Name: "region", Mutable: false}}
	prev := []WorkspaceBuildParameter{{Name: "region", Value: "eu"}}
	if err := ValidateImmutable(prev, []WorkspaceBuildParameter{{Name: "region", Value: "eu"}}, tp); err != nil {
		t.Fatalf("unchanged value rejected: %v", err)
	}
	if err := ValidateImmutable(prev, []WorkspaceBuildParameter{{Name: "region", Value: "us"}}, tp); err == nil {
		t.Fatal("changed immutable parameter accepted")
	}
}

func TestUnsetRequiredParameters(t *testing.T) {
	tp := []TemplateVersionParameter{
		{Name: "cpu", Required: true},
		{Name: "mem", Required: true, DefaultValue: "4"},
		{Name: "disk", Required: false},
	}
	got := UnsetRequiredParameters([]WorkspaceBuildParameter{{Name: "cpu", Value: ""}}, tp)
	if len(got) != 1 || got[0].Name != "cpu" {
		t.Fatalf("unexpected unset parameters: %+v", got)
	}
}

func TestResolvePermissions(t *testing.T) {
	ws := Workspace{OwnerName: "alice"}

	owner := ResolvePermissions("alice", nil, ws)
	if !owner.UpdateWorkspace || owner.UpdateTemplate || owner.ViewDeploymentValues {
		t.Errorf("owner permissions: %+v", owner)
	}
	tmpl := ResolvePermissions("bob", ParseRoles("template-admin"), ws)
	if tmpl.UpdateWorkspace || !tmpl.UpdateTemplate {
		t.Errorf("template admin permissions: %+v", tmpl)
	}
	admin := ResolvePermissions("carol", ParseRoles(" Admin , member"), ws)
	if !admin.UpdateWorkspace || !admin.UpdateTemplate || !admin.ViewDeploymentValues {
		t.Errorf("admin permissions: %+v", admin)
	}
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	if ErrMissingBuildParameters.HTTPStatus() != 400 {
		t.Error("missing parameters should be 400")
	}
	if ErrConflictBuildActive.HTTPStatus() != 409 {
		t.Error("active build should be 409")
	}
	if ErrorCode("WSA_UNKNOWN").HTTPStatus() != 500 {
		t.Error("unknown code should be 500")
	}
}

func TestErrorMessage(t *testing.T) {
	wrapped := fmt.Errorf("activate: %w", NewAppError(ErrForbidden, "workspace is locked"))
	if got := ErrorMessage(wrapped, "fallback"); got != "workspace is locked" {
		t.Errorf("got %q", got)
	}
	if got := ErrorMessage(nil, "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	if !IsCode(wrapped, ErrForbidden) {
		t.Error("IsCode did not unwrap")
	}
	var mp *MissingBuildParametersError
	err := fmt.Errorf("update: %w", &MissingBuildParametersError{Parameters: []TemplateVersionParameter{{Name: "cpu"}}})
	if !errors.As(err, &mp) || mp.Parameters[0].Name != "cpu" {
		t.Error("missing parameters error not recoverable with errors.As")
	}
}

func TestErrorMessage_NonAPIErrorUsesFallback(t *testing.T) {
	if got := ErrorMessage(errors.New("dial tcp: refused"), "Error activating workspace."); got != "Error activating workspace." {
		t.Errorf("got %q", got)
	}
}

func TestCanRestart(t *testing.T) {
	tests := []struct {
		build WorkspaceBuild
		want  bool
	}{
		{WorkspaceBuild{Status: StatusRunning, JobStatus: JobSucceeded}, true},
		{WorkspaceBuild{Status: StatusStopped, JobStatus: JobSucceeded}, true},
		{WorkspaceBuild{Status: StatusFailed, JobStatus: JobFailed}, true},
		{WorkspaceBuild{Status: StatusStarting, JobStatus: JobRunning}, false},
		{WorkspaceBuild{Status: StatusDeleted, JobStatus: JobSucceeded}, false},
	}
	for _, tt := range tests {
		if got := CanRestart(tt.build); got != tt.want {
			t.Errorf("CanRestart(%s/%s) = %v, want %v", tt.build.Status, tt.build.JobStatus, got, tt.want)
		}
	}
}

func TestValidateTemplateParameters(t *testing.T) {
	ok := []TemplateVersionParameter{
		{Name: "region", DefaultValue: "eu", Options: []ParameterOption{{Value: "eu"}, {Value: "us"}}},
		{Name: "cpu"},
	}
	if err := ValidateTemplateParameters(ok); err != nil {
		t.Fatalf("valid parameters rejected: %v", err)
	}

	bad := map[string][]TemplateVersionParameter{
		"empty name": {{Name: ""}},
		"duplicate":  {{Name: "a"}, {Name: "a"}},
		"bad default": {
			{Name: "region", DefaultValue: "ap", Options: []ParameterOption{{Value: "eu"}}},
		},
	}
	for name, params := range bad {
		if err := ValidateTemplateParameters(params); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	tp := []TemplateVersionParameter{
		{Name: "cpu", DefaultValue: "2"},
		{Name: "region", DefaultValue: "eu"},
		{Name: "disk"},
	}
	got := ApplyDefaults([]WorkspaceBuildParameter{{Name: "cpu", Value: "8"}}, tp)
	want := []WorkspaceBuildParameter{{Name: "cpu", Value: "8"}, {Name: "region", Value: "eu"}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestInvalidOptions(t *testing.T) {
	tp := []TemplateVersionParameter{
		{Name: "region", Options: []ParameterOption{{Value: "eu"}}},
		{Name: "cpu"},
	}
	got := InvalidOptions([]WorkspaceBuildParameter{{Name: "region", Value: "us"}, {Name: "cpu", Value: "x"}}, tp)
	if len(got) != 1 || got[0].Name != "region" {
		t.Errorf("got %v", got)
	}
}
