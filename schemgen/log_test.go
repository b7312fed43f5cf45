package schemgen

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func captureLog(t *testing.T, newMode ModeFlag) *bytes.Buffer {
	var buf bytes.Buffer
	oldMode := mode
	log.SetOutput(&buf)
	SetLogMode(newMode)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		SetLogMode(oldMode)
	})
	return &buf
}

func TestLogMode(t *testing.T) {
	buf := captureLog(t, WarningMode)
	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warningf("warning %d", 3)
	Errorf("error %d", 4)
	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below warning should be dropped:\n%s", out)
	}
	if !strings.Contains(out, "WARNING warning 3") || !strings.Contains(out, "ERROR error 4") {
		t.Errorf("expected warning and error messages:\n%s", out)
	}

	buf.Reset()
	SetLogMode(SilentMode)
	Criticalf("critical")
	if buf.Len() != 0 {
		t.Errorf("silent mode should drop everything, got %q", buf.String())
	}
}

func TestTimeLog(t *testing.T) {
	buf := captureLog(t, InfoMode)
	timedLog := NewTimeLog()
	timedLog.Debugf("hidden")
	timedLog.Infof("wrote %d tiles", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged in info mode:\n%s", out)
	}
	if !strings.Contains(out, "INFO wrote 3 tiles: ") {
		t.Errorf("expected elapsed time after message:\n%s", out)
	}
}
