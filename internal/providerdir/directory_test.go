package providerdir

import (
	"context"
	"errors"
	"testing"

	"github.com/modelrt/modelrt/internal/runtimekey"
)

type fakeProvider struct {
	id   string
	caps Capabilities
}

func (f *fakeProvider) ProviderID() string        { return f.id }
func (f *fakeProvider) Capabilities() Capabilities { return f.caps }
func (f *fakeProvider) Load(_ context.Context, _ Spec) (Handle, error) {
	return f, nil
}
func (f *fakeProvider) Health(_ context.Context) HealthStatus {
	return HealthStatus{State: HealthHealthy}
}

func TestBuildAndGet(t *testing.T) {
	ResetForTest()
	Register("local/fake", func() (Provider, error) {
		return &fakeProvider{id: "local/fake", caps: Capabilities{SupportedTasks: []runtimekey.Task{runtimekey.TaskEmbed}}}, nil
	})

	dir, err := Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	p, err := dir.Get("local/fake")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.ProviderID() != "local/fake" {
		t.Errorf("ProviderID() = %q, want %q", p.ProviderID(), "local/fake")
	}
	if !dir.Contains("local/fake") {
		t.Error("Contains() = false, want true")
	}
	if dir.Len() != 1 {
		t.Errorf("Len() = %d, want 1", dir.Len())
	}
}

func TestGetMissingReturnsNotFoundError(t *testing.T) {
	ResetForTest()
	dir, err := Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	_, err = dir.Get("remote/missing")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Get() error = %v, want *NotFoundError", err)
	}
	if notFound.ProviderID != "remote/missing" {
		t.Errorf("NotFoundError.ProviderID = %q, want %q", notFound.ProviderID, "remote/missing")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	ResetForTest()
	Register("local/dup", func() (Provider, error) { return nil, nil })

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Register() did not panic on duplicate id")
		}
		var already *AlreadyRegisteredError
		if !errors.As(r.(error), &already) {
			t.Fatalf("recovered value = %v, want *AlreadyRegisteredError", r)
		}
	}()
	Register("local/dup", func() (Provider, error) { return nil, nil })
}

func TestIsRemote(t *testing.T) {
	cases := map[string]bool{
		"remote/openai": true,
		"local/onnx":    false,
		"remote":        false,
		"":              false,
	}
	for id, want := range cases {
		if got := IsRemote(id); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestCapabilitiesSupports(t *testing.T) {
	c := Capabilities{SupportedTasks: []runtimekey.Task{runtimekey.TaskEmbed, runtimekey.TaskRerank}}
	if !c.Supports(runtimekey.TaskEmbed) {
		t.Error("Supports(TaskEmbed) = false, want true")
	}
	if c.Supports(runtimekey.TaskGenerate) {
		t.Error("Supports(TaskGenerate) = true, want false")
	}
}
