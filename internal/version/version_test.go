package version

import (
	"strings"
	"testing"
)

func TestUserAgentTracksVersion(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "1.4.0"
	if got := UserAgent(); got != "bankcompare/1.4.0" {
		t.Fatalf("unexpected user agent %q", got)
	}
	if !strings.HasPrefix(String(), "bankcompare 1.4.0\n") {
		t.Fatalf("unexpected build summary %q", String())
	}
}
