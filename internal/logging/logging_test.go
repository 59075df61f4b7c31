package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContextFallsBackToDiscard(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("expected a logger")
	}
	l.Info("dropped")
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, false))
	FromContext(ctx).Debug("hidden")
	FromContext(ctx).Info("shown", "stage", "woe")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked: %s", out)
	}
	if !strings.Contains(out, "stage=woe") {
		t.Fatalf("missing info line: %s", out)
	}

	buf.Reset()
	FromContext(WithLogger(context.Background(), New(&buf, true))).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug logger dropped line: %s", buf.String())
	}
}
