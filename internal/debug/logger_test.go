package debug

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSetOutput(t *testing.T) {
	defer SetOutput(io.Discard)

	if Enabled() {
		t.Fatal("logging should start disabled")
	}

	var buf bytes.Buffer
	SetOutput(&buf)
	if !Enabled() {
		t.Fatal("expected logging enabled")
	}

	Log("refreshing %d routes", 3)
	WithField("feature", "dupont").WithError(errors.New("timeout")).Warn("route failed")

	out := buf.String()
	for _, want := range []string{"refreshing 3 routes", "feature=dupont", "error=timeout", "level=warning"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	SetOutput(nil)
	if Enabled() {
		t.Fatal("nil output should disable logging")
	}
}
