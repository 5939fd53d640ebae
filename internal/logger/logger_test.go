package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewReleaseWritesJSONToRotatingFile(t *testing.T) {
	dir := t.TempDir()
	log := New("release", Options{Dir: dir, Filename: "release.log"})
	log.Sugar().Infow("comment_submitted", "tenant", "acme")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(dir, "release.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, `"message":"comment_submitted"`) {
		t.Fatalf("expected JSON message field, got %s", line)
	}
	if !strings.Contains(line, `"tenant":"acme"`) {
		t.Fatalf("expected tenant field, got %s", line)
	}
}

func TestNewWithoutDirSkipsFileOutput(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	log := New("release", Options{})
	log.Info("stdout-only")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files to be created, found %d", len(entries))
	}
}

func TestZFallsBackBeforeInit(t *testing.T) {
	previous := current.Swap(nil)
	t.Cleanup(func() { current.Store(previous) })

	if Z() == nil {
		t.Fatalf("expected fallback logger")
	}
	if Z() != Z() {
		t.Fatalf("expected fallback logger to be reused")
	}
}

func TestOptionsRotationDefaults(t *testing.T) {
	rot := Options{Dir: "/var/log/tangerine"}.rotation()
	if rot.Filename != filepath.Join("/var/log/tangerine", "tangerine.log") {
		t.Fatalf("unexpected filename %q", rot.Filename)
	}
	if rot.MaxSize != 50 || rot.MaxBackups != 5 || rot.MaxAge != 14 {
		t.Fatalf("unexpected rotation defaults %+v", rot)
	}
}

func TestPositiveOr(t *testing.T) {
	if got := positiveOr(0, 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	if got := positiveOr(3, 7); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
