package ui

import (
	"testing"

	"weft/pkg/telemetry"
)

func TestFormatStepLine(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		step stepState
		msg  string
		want string
	}{
		{
			name: "running root",
			step: stepState{ID: "bootstrap", Title: "bootstrapping peer", Status: stepRunning},
			want: "  [->] bootstrapping peer",
		},
		{
			name: "done child",
			step: stepState{ID: "add/keygen", ParentID: "add", Title: "keygen", Status: stepDone},
			want: "    [ok] keygen",
		},
		{
			name: "failed with message",
			step: stepState{ID: "sync", Title: "synchronizing members", Status: stepFailed},
			msg:  "connection refused",
			want: "  [x] synchronizing members (connection refused)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := formatStepLine(tc.step, tc.msg)
			if got != tc.want {
				t.Fatalf("formatStepLine() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStepObserverFanoutCountersForPlannedParent(t *testing.T) {
	t.Parallel()

	snapshots := make([]stepSnapshot, 0, 8)
	observer := newStepObserver(func(snapshot stepSnapshot) {
		copied := stepSnapshot{Steps: append([]stepState(nil), snapshot.Steps...)}
		snapshots = append(snapshots, copied)
	})

	observer.onPlan(telemetry.Plan{Steps: []telemetry.PlannedStep{
		{ID: "sync", Title: "synchronizing members"},
		{ID: "reload", Title: "reloading anchor"},
	}})
	observer.onStepStart("sync")
	observer.onStepStart("sync/web_1")
	observer.onStepEnd("sync/web_1", false, "")
	observer.onStepStart("sync/db_1")
	observer.onStepEnd("sync/db_1", false, "")
	observer.onStepEnd("sync", false, "")

	if len(snapshots) == 0 {
		t.Fatal("expected telemetry snapshots")
	}

	final := snapshots[len(snapshots)-1]
	parent, ok := stepByID(final, "sync")
	if !ok {
		t.Fatal("missing parent step sync")
	}
	if parent.Status != stepDone {
		t.Fatalf("parent status = %q, want done", parent.Status)
	}
	if parent.Message != "2/2 done" {
		t.Fatalf("parent message = %q, want 2/2 done", parent.Message)
	}
}

func TestStepObserverCreatesSyntheticParentForDynamicChildren(t *testing.T) {
	t.Parallel()

	snapshots := make([]stepSnapshot, 0, 4)
	observer := newStepObserver(func(snapshot stepSnapshot) {
		copied := stepSnapshot{Steps: append([]stepState(nil), snapshot.Steps...)}
		snapshots = append(snapshots, copied)
	})

	observer.onStepStart("push/web_1")
	observer.onStepEnd("push/web_1", false, "")

	if len(snapshots) == 0 {
		t.Fatal("expected telemetry snapshots")
	}

	final := snapshots[len(snapshots)-1]
	parent, ok := stepByID(final, "push")
	if !ok {
		t.Fatal("missing synthetic parent step")
	}
	if parent.Status != stepDone {
		t.Fatalf("synthetic parent status = %q, want done", parent.Status)
	}
	if parent.Message != "1/1 done" {
		t.Fatalf("synthetic parent message = %q, want 1/1 done", parent.Message)
	}

	child, ok := stepByID(final, "push/web_1")
	if !ok {
		t.Fatal("missing child step")
	}
	if child.ParentID != "push" {
		t.Fatalf("child parent id = %q, want push", child.ParentID)
	}
}

func TestStepObserverKeepsFanoutCountersOnParentFailure(t *testing.T) {
	t.Parallel()

	snapshots := make([]stepSnapshot, 0, 6)
	observer := newStepObserver(func(snapshot stepSnapshot) {
		copied := stepSnapshot{Steps: append([]stepState(nil), snapshot.Steps...)}
		snapshots = append(snapshots, copied)
	})

	observer.onPlan(telemetry.Plan{Steps: []telemetry.PlannedStep{{
		ID:    "sync",
		Title: "synchronizing members",
	}}})
	observer.onStepStart("sync")
	observer.onStepStart("sync/web_1")
	observer.onStepEnd("sync/web_1", true, "timeout")
	observer.onStepEnd("sync", true, "fan-out failed")

	if len(snapshots) == 0 {
		t.Fatal("expected telemetry snapshots")
	}

	final := snapshots[len(snapshots)-1]
	parent, ok := stepByID(final, "sync")
	if !ok {
		t.Fatal("missing parent step sync")
	}
	if parent.Status != stepFailed {
		t.Fatalf("parent status = %q, want failed", parent.Status)
	}
	if parent.Message != "0/1 done, 1 failed; fan-out failed" {
		t.Fatalf("parent message = %q", parent.Message)
	}
}

func stepByID(snapshot stepSnapshot, id string) (stepState, bool) {
	for _, step := range snapshot.Steps {
		if step.ID == id {
			return step, true
		}
	}
	return stepState{}, false
}
