package builder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lzjever/mbos-wsa/internal/core"
)

func TestPlanStages(t *testing.T) {
	tests := []struct {
		transition core.Transition
		orphan     bool
		want       []Stage
	}{
		{core.TransitionStart, false, []Stage{StageInit, StagePlan, StageApply}},
		{core.TransitionStop, false, []Stage{StageInit, StagePlan, StageApply}},
		{core.TransitionDelete, false, []Stage{StageInit, StagePlan, StageApply}},
		{core.TransitionDelete, true, []Stage{StageInit}},
	}
	for _, tt := range tests {
		got := PlanStages(tt.transition, tt.orphan)
		if len(got) != len(tt.want) {
			t.Errorf("%s orphan=%v: got %v, want %v", tt.transition, tt.orphan, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s orphan=%v: got %v, want %v", tt.transition, tt.orphan, got, tt.want)
			}
		}
	}
}

type logLine struct {
	level  string
	stage  Stage
	output string
}

func collect(lines *[]logLine) LogFunc {
	return func(level string, stage Stage, output string) {
		*lines = append(*lines, logLine{level, stage, output})
	}
}

func TestSimulator_Stages(t *testing.T) {
	job := Job{
		Transition: core.TransitionStart,
		Parameters: []core.WorkspaceBuildParameter{{Name: "region", Value: "eu"}},
		Resources:  []core.WorkspaceResource{{Name: "main", Type: "docker_container"}},
	}
	var lines []logLine
	for _, stage := range PlanStages(job.Transition, false) {
		if err := (Simulator{}).RunStage(context.Background(), job, stage, collect(&lines)); err != nil {
			t.Fatalf("stage %s: %v", stage, err)
		}
	}

	var sawDebug, sawPlan bool
	for _, l := range lines {
		if l.level == "debug" && strings.Contains(l.output, "region") {
			sawDebug = true
		}
		if l.stage == StagePlan && strings.Contains(l.output, "docker_container.main will be created") {
			sawPlan = true
		}
	}
	if !sawDebug {
		t.Error("parameters not logged at debug level")
	}
	if !sawPlan {
		t.Errorf("plan line missing: %v", lines)
	}
}

func TestSimulator_ErrorResource(t *testing.T) {
	job := Job{
		Transition: core.TransitionStart,
		Resources:  []core.WorkspaceResource{{Name: "broken", Type: ErrorResourceType}},
	}
	var lines []logLine
	err := (Simulator{}).RunStage(context.Background(), job, StageApply, collect(&lines))
	if err == nil {
		t.Fatal("expected apply to fail")
	}
	if len(lines) == 0 || lines[len(lines)-1].level != "error" {
		t.Errorf("failure not logged: %v", lines)
	}

	job.Transition = core.TransitionStop
	if err := (Simulator{}).RunStage(context.Background(), job, StageApply, collect(&lines)); err != nil {
		t.Errorf("stop should tear down a broken resource: %v", err)
	}
}

func TestSimulator_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var lines []logLine
	err := (Simulator{Delay: time.Hour}).RunStage(ctx, Job{Transition: core.TransitionStop}, StageInit, collect(&lines))
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestSimulator_UnknownStage(t *testing.T) {
	var lines []logLine
	if err := (Simulator{}).RunStage(context.Background(), Job{}, Stage("refresh"), collect(&lines)); err == nil {
		t.Error("expected unknown stage error")
	}
}
