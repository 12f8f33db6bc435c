package job_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/syncq/job"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := job.NewRegistry()

	r.Register("ping", func(_ context.Context, _ *job.Job) error { return nil })

	if _, ok := r.Get("ping"); !ok {
		t.Error("Get(\"ping\") = false, want registered processor")
	}
	if _, ok := r.Get("pong"); ok {
		t.Error("Get(\"pong\") = true, want no processor")
	}
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := job.NewRegistry()

	first := errors.New("first")
	second := errors.New("second")
	r.Register("sync", func(_ context.Context, _ *job.Job) error { return first })
	r.Register("sync", func(_ context.Context, _ *job.Job) error { return second })

	p, ok := r.Get("sync")
	if !ok {
		t.Fatal("Get(\"sync\") = false, want registered processor")
	}
	if err := p(context.Background(), &job.Job{}); !errors.Is(err, second) {
		t.Errorf("processor returned %v, want the second registration", err)
	}
}

func TestRegisterDefinition_DecodesPayload(t *testing.T) {
	type contact struct {
		Email string `json:"email"`
	}

	r := job.NewRegistry()
	var got contact
	def := job.NewDefinition("push_contact", func(_ context.Context, _ *job.Job, p contact) error {
		got = p
		return nil
	})
	job.RegisterDefinition(r, def)

	p, ok := r.Get("push_contact")
	if !ok {
		t.Fatal("definition not registered")
	}

	j := &job.Job{Type: "push_contact", Payload: []byte(`{"email":"alice@example.com"}`)}
	if err := p(context.Background(), j); err != nil {
		t.Fatalf("processor: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("payload.Email = %q, want %q", got.Email, "alice@example.com")
	}
}

func TestRegisterDefinition_BadPayload(t *testing.T) {
	type contact struct {
		Email string `json:"email"`
	}

	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("push_contact", func(_ context.Context, _ *job.Job, _ contact) error {
		return nil
	}))

	p, _ := r.Get("push_contact")
	j := &job.Job{Type: "push_contact", Payload: []byte(`not json`)}
	if err := p(context.Background(), j); err == nil {
		t.Error("processor succeeded on malformed payload, want error")
	}
}

func TestRegistry_Types(t *testing.T) {
	r := job.NewRegistry()
	r.Register("a", func(_ context.Context, _ *job.Job) error { return nil })
	r.Register("b", func(_ context.Context, _ *job.Job) error { return nil })

	types := r.Types()
	if len(types) != 2 {
		t.Errorf("Types() returned %d entries, want 2", len(types))
	}
}

func TestState_Terminal(t *testing.T) {
	tests := []struct {
		state job.State
		want  bool
	}{
		{job.StateWaiting, false},
		{job.StateDelayed, false},
		{job.StateActive, false},
		{job.StateCompleted, true},
		{job.StateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
