package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lzjever/mbos-wsa/internal/core"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := NewPrompter(strings.NewReader(tt.input), &out, true, false)
		got, err := p.Confirm("Delete dev?")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Delete dev? [y/N]") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestConfirm_NonInteractive(t *testing.T) {
	p := NewPrompter(strings.NewReader("y\n"), &bytes.Buffer{}, false, false)
	if _, err := p.Confirm("Delete dev?"); !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}

	yes := NewPrompter(strings.NewReader(""), &bytes.Buffer{}, false, true)
	ok, err := yes.Confirm("Delete dev?")
	if err != nil || !ok {
		t.Fatalf("--yes should confirm, got %v %v", ok, err)
	}
}

func TestAskParameters(t *testing.T) {
	params := []core.TemplateVersionParameter{
		{Name: "region", DisplayName: "Region", Required: true, Options: []core.ParameterOption{
			{Name: "Europe", Value: "eu"},
			{Name: "US", Value: "us"},
		}},
		{Name: "cpu", DefaultValue: "2"},
		{Name: "image", Required: true},
	}
	// Invalid option, then by number; default for cpu; empty then a value for image.
	input := "mars\n2\n\n\nubuntu\n"
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(input), &out, true, false)

	got, err := p.AskParameters(params)
	if err != nil {
		t.Fatalf("AskParameters: %v", err)
	}
	want := []core.WorkspaceBuildParameter{
		{Name: "region", Value: "us"},
		{Name: "cpu", Value: "2"},
		{Name: "image", Value: "ubuntu"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("param %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	for _, s := range []string{"Region", "1) Europe [eu]", "cpu [2]:", "pick one of the listed options", "a value is required"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("prompt output missing %q:\n%s", s, out.String())
		}
	}
}

func TestAskParameters_NonInteractive(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{}, false, true)
	_, err := p.AskParameters([]core.TemplateVersionParameter{{Name: "region"}, {Name: "cpu"}})
	if !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}
	if !strings.Contains(err.Error(), "region, cpu") {
		t.Errorf("error should name the parameters: %v", err)
	}
}

func TestChoose(t *testing.T) {
	p := NewPrompter(strings.NewReader("9\n2\n"), &bytes.Buffer{}, true, false)
	got, err := p.Choose("Version:", []string{"v2", "v1"}, 1)
	if err != nil || got != 1 {
		t.Fatalf("Choose = %d, %v", got, err)
	}

	def := NewPrompter(strings.NewReader("\n"), &bytes.Buffer{}, true, false)
	if got, _ := def.Choose("Version:", []string{"v2", "v1"}, 0); got != 0 {
		t.Errorf("empty answer should pick the default, got %d", got)
	}

	batch := NewPrompter(strings.NewReader(""), &bytes.Buffer{}, false, false)
	if _, err := batch.Choose("Version:", []string{"v2"}, -1); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("expected ErrNotInteractive, got %v", err)
	}
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"region=eu", "motd=a=b", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[1].Value != "a=b" || got[2].Value != "" {
		t.Fatalf("got %+v", got)
	}

	for _, bad := range [][]string{{"region"}, {"=eu"}, {"a=1", "a=2"}} {
		if _, err := parseParams(bad); err == nil {
			t.Errorf("parseParams(%v) succeeded", bad)
		}
	}
}
