package bus

import (
	"context"
	"strings"
	"testing"
)

func TestNilBus(t *testing.T) {
	var b *Bus
	ctx := context.Background()

	if err := b.Publish(ctx, SubjectConfigUpdated, map[string]string{"k": "v"}); err == nil {
		t.Fatalf("Publish on nil bus error = nil")
	}
	if err := b.EnsureStream(ctx); err == nil {
		t.Fatalf("EnsureStream on nil bus error = nil")
	}
	if _, err := b.Subscribe(ctx, SubjectPrefix+">", "", func(context.Context, string, []byte) error { return nil }); err == nil {
		t.Fatalf("Subscribe on nil bus error = nil")
	}
	b.Close()
}

func TestSubjectsShareStreamPrefix(t *testing.T) {
	for _, subj := range []string{SubjectCredentialsIssued, SubjectConfigUpdated} {
		if !strings.HasPrefix(subj, SubjectPrefix) {
			t.Fatalf("subject %q outside stream prefix %q", subj, SubjectPrefix)
		}
	}
}

func TestNewUnreachable(t *testing.T) {
	if _, err := New("nats://127.0.0.1:1"); err == nil {
		t.Fatalf("New against closed port error = nil")
	}
}
