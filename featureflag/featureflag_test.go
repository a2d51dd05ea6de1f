package featureflag_test

import (
	"testing"

	"github.com/xraph/conveyor/featureflag"
)

func TestStatic(t *testing.T) {
	f := featureflag.Static{"conveyor-queue": true, "other": false}
	if !f.IsEnabled("conveyor-queue", "u1") {
		t.Error("conveyor-queue should be enabled")
	}
	if f.IsEnabled("other", "") || f.IsEnabled("missing", "") {
		t.Error("other and missing should be disabled")
	}
}

func TestFlagsFunc_PerUser(t *testing.T) {
	f := featureflag.FlagsFunc(func(_, userID string) bool { return userID == "beta" })
	if !f.IsEnabled("x", "beta") || f.IsEnabled("x", "alpha") {
		t.Error("per-user gating not applied")
	}
}

func TestAlways(t *testing.T) {
	if !featureflag.Always(true).IsEnabled("anything", "") {
		t.Error("Always(true) returned false")
	}
	if featureflag.Always(false).IsEnabled("anything", "") {
		t.Error("Always(false) returned true")
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("CONVEYOR_FLAG_CONVEYOR_QUEUE", "true")
	t.Setenv("CONVEYOR_FLAG_BROKEN", "maybe")

	e := featureflag.NewEnv("CONVEYOR_FLAG_")
	if got := e.Key("conveyor-queue"); got != "CONVEYOR_FLAG_CONVEYOR_QUEUE" {
		t.Errorf("Key = %q", got)
	}
	if !e.IsEnabled("conveyor-queue", "") {
		t.Error("conveyor-queue should be enabled")
	}
	if e.IsEnabled("broken", "") {
		t.Error("unparsable value should be off")
	}
	if e.IsEnabled("unset", "") {
		t.Error("unset flag should be off")
	}
}
