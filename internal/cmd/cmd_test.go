package cmd

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	t.Parallel()

	loc, err := loadLocation("")
	if err != nil || loc != time.Local {
		t.Errorf("expected time.Local for empty name, got %v, %v", loc, err)
	}

	loc, err = loadLocation("UTC")
	if err != nil || loc.String() != "UTC" {
		t.Errorf("expected UTC, got %v, %v", loc, err)
	}

	if _, err := loadLocation("Not/A_Zone"); err == nil {
		t.Error("expected error for unknown time zone")
	}
}

func TestRenameRejectsBadArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"non-numeric id", []string{"abc", "Ride"}},
		{"zero id", []string{"0", "Ride"}},
		{"blank name", []string{"42", "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := renameCmd.RunE(renameCmd, tt.args); err == nil {
				t.Errorf("expected error for args %v", tt.args)
			}
		})
	}
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	t.Parallel()

	if err := Run(&RuntimeConfig{Port: 8080}); err == nil {
		t.Error("expected error for zero refresh interval")
	}
}
