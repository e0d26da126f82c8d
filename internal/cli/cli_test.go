package cli

import (
	"testing"
	"time"
)

func TestParseTimeFlag(t *testing.T) {
	got, err := parseTimeFlag("from", "2025-03-14")
	if err != nil || !got.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("plain date: %v %v", got, err)
	}

	got, err = parseTimeFlag("to", "2025-03-14T12:30:00+03:00")
	if err != nil || got.UTC().Hour() != 9 {
		t.Fatalf("rfc3339: %v %v", got, err)
	}

	if got, err := parseTimeFlag("from", ""); got != nil || err != nil {
		t.Fatalf("empty flag should be unset, got %v %v", got, err)
	}
	if _, err := parseTimeFlag("from", "14/03/2025"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}

func TestRolloutCommandsRegistered(t *testing.T) {
	want := map[string]bool{"status": false, "check": false, "create": false, "start": false, "advance": false,
		"pause": false, "resume": false, "abort": false, "complete": false}
	for _, cmd := range rolloutCmd.Commands() {
		want[cmd.Name()] = true
	}
	for name, found := range want {
		if !found {
			t.Fatalf("rollout %s not registered", name)
		}
	}
}
