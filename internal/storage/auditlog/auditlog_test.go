package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogfAppendsTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.log")
	l := New(path, 0, 0)
	defer l.Close()

	l.Logf("Today high Temp broken: %.1f -> %.1f", 24.0, 25.5)
	l.Logf("AllTime low Temp broken: %.1f -> %.1f", -12.0, -14.2)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading diary: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[0], "Today high Temp broken: 24.0 -> 25.5") {
		t.Errorf("first line = %q", lines[0])
	}
	// Timestamp prefix is "YYYY-MM-DD HH:MM:SS ".
	if len(lines[1]) < 20 || lines[1][4] != '-' || lines[1][10] != ' ' {
		t.Errorf("second line missing timestamp prefix: %q", lines[1])
	}
}
