package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeWorkspace records whether any call reached the collaborator layer.
type fakeWorkspace struct {
	files   []string
	content map[string]string
	touched bool
}

func (f *fakeWorkspace) ListFiles(ctx context.Context) ([]string, error) {
	f.touched = true
	return f.files, nil
}

func (f *fakeWorkspace) ReadFile(ctx context.Context, path string) (string, error) {
	f.touched = true
	if c, ok := f.content[path]; ok {
		return c, nil
	}
	return "", errors.New("no such file: " + path)
}

func (f *fakeWorkspace) ListSymbols(ctx context.Context, path string) ([]string, error) {
	f.touched = true
	return []string{"main"}, nil
}

func (f *fakeWorkspace) ReadSymbol(ctx context.Context, path, name string) (string, error) {
	f.touched = true
	return "func main() {}", nil
}

type fakeIndex struct{ result string }

func (f *fakeIndex) Query(ctx context.Context, query string, topK int) (string, error) {
	if f.result == "" {
		return "", errors.New("no index exists for this project")
	}
	return f.result, nil
}

func noAsk(ctx context.Context, question string) (string, error) {
	return "", errors.New("no human attached")
}

func TestDispatchReadOnlyTool(t *testing.T) {
	ws := &fakeWorkspace{files: []string{"main.go", "go.mod"}}
	reg := NewBuiltinRegistry(&fakeIndex{result: "ctx"}, ws, noAsk)

	obs, err := reg.Dispatch(context.Background(), "listFiles", nil)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if obs != "main.go\ngo.mod" {
		t.Errorf("observation = %q", obs)
	}
}

func TestDispatchMutatingToolFailsClosed(t *testing.T) {
	ws := &fakeWorkspace{}
	reg := NewBuiltinRegistry(&fakeIndex{}, ws, noAsk)

	for _, name := range []string{"writeFile", "executeCommand"} {
		obs, err := reg.Dispatch(context.Background(), name, map[string]any{"path": "x"})
		if err != nil {
			t.Fatalf("Dispatch(%s) returned fatal error: %v", name, err)
		}
		if !strings.Contains(obs, "proposePlan") {
			t.Errorf("Dispatch(%s) observation should point at proposePlan: %q", name, obs)
		}
	}
	if ws.touched {
		t.Error("mutating dispatch must not reach the collaborator layer")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewBuiltinRegistry(&fakeIndex{}, &fakeWorkspace{}, noAsk)

	obs, err := reg.Dispatch(context.Background(), "teleport", nil)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if !strings.Contains(obs, "not a valid information-gathering tool") {
		t.Errorf("observation = %q", obs)
	}
}

func TestDispatchMissingArgBecomesObservation(t *testing.T) {
	reg := NewBuiltinRegistry(&fakeIndex{}, &fakeWorkspace{}, noAsk)

	obs, err := reg.Dispatch(context.Background(), "readFile", map[string]any{})
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if !strings.Contains(obs, "missing required argument") {
		t.Errorf("observation = %q", obs)
	}
}

func TestDispatchCollaboratorErrorBecomesObservation(t *testing.T) {
	ws := &fakeWorkspace{content: map[string]string{}}
	reg := NewBuiltinRegistry(&fakeIndex{}, ws, noAsk)

	obs, err := reg.Dispatch(context.Background(), "readFile", map[string]any{"path": "ghost.go"})
	if err != nil {
		t.Fatalf("collaborator errors must not propagate: %v", err)
	}
	if !strings.Contains(obs, "no such file") {
		t.Errorf("observation = %q", obs)
	}
}

func TestDispatchAskUserFailureIsFatal(t *testing.T) {
	reg := NewBuiltinRegistry(&fakeIndex{}, &fakeWorkspace{}, noAsk)

	_, err := reg.Dispatch(context.Background(), "askUser", map[string]any{"question": "hm?"})
	if err == nil {
		t.Fatal("expected fatal error from failed askUser")
	}
	if !IsFatal(err) {
		t.Errorf("askUser failure should be fatal, got %v", err)
	}
}

func TestDispatchAskUserAnswer(t *testing.T) {
	ask := func(ctx context.Context, q string) (string, error) { return "blue", nil }
	reg := NewBuiltinRegistry(&fakeIndex{}, &fakeWorkspace{}, ask)

	obs, err := reg.Dispatch(context.Background(), "askUser", map[string]any{"question": "favourite colour?"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if obs != "blue" {
		t.Errorf("observation = %q", obs)
	}
}
