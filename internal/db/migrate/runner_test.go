package migrate

import (
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error should mention DATABASE_URL, got: %v", err)
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, dir := range []string{"", "sideways", "UP"} {
		err := Run("postgres://localhost/db", dir)
		if err == nil {
			t.Errorf("Run with direction %q should return error", dir)
			continue
		}
		if !strings.Contains(err.Error(), "direction") {
			t.Errorf("error should mention direction, got: %v", err)
		}
	}
}
