package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Index is the retrieval collaborator behind queryIndex.
type Index interface {
	// Query returns a formatted retrieved-context string for the topK
	// closest chunks. Errors if no index has been built yet.
	Query(ctx context.Context, query string, topK int) (string, error)
}

// Workspace is the codebase-introspection collaborator.
type Workspace interface {
	ListFiles(ctx context.Context) ([]string, error)
	ReadFile(ctx context.Context, path string) (string, error)
	ListSymbols(ctx context.Context, path string) ([]string, error)
	ReadSymbol(ctx context.Context, path, name string) (string, error)
}

// AskFunc routes a question to a human and blocks until an answer arrives
// or the prompt times out. Bound per task to that task's correlator.
type AskFunc func(ctx context.Context, question string) (string, error)

const defaultQueryTopK = 5

// NewBuiltinRegistry builds the catalog for one task: the read-only
// information-gathering tools bound to their shared collaborators, askUser
// bound to this task's prompt channel, and the mutating operations
// registered so dispatch can fail closed on them by name.
func NewBuiltinRegistry(index Index, ws Workspace, ask AskFunc) *Registry {
	r := NewRegistry()

	r.MustRegister(&Tool{
		Name:        "queryIndex",
		Description: "semantic search over the indexed codebase; returns the most relevant chunks",
		Capability:  CapabilityReadOnly,
		Schema: Schema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {Type: "string", Description: "natural-language search query"},
				"topK":  {Type: "number", Description: "number of chunks to return (default 5)"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			if index == nil {
				return "", errors.New("no index is available for this project")
			}
			return index.Query(ctx, stringArg(args, "query"), intArg(args, "topK", defaultQueryTopK))
		},
	})

	r.MustRegister(&Tool{
		Name:        "listFiles",
		Description: "list every source file in the project",
		Capability:  CapabilityReadOnly,
		Schema:      Schema{},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			files, err := ws.ListFiles(ctx)
			if err != nil {
				return "", err
			}
			return strings.Join(files, "\n"), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "readFile",
		Description: "read the contents of one file",
		Capability:  CapabilityReadOnly,
		Schema: Schema{
			Required: []string{"path"},
			Properties: map[string]Property{
				"path": {Type: "string", Description: "path relative to the project root"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return ws.ReadFile(ctx, stringArg(args, "path"))
		},
	})

	r.MustRegister(&Tool{
		Name:        "listSymbols",
		Description: "list the top-level symbols (functions, types, classes) declared in a file",
		Capability:  CapabilityReadOnly,
		Schema: Schema{
			Required: []string{"path"},
			Properties: map[string]Property{
				"path": {Type: "string", Description: "path relative to the project root"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			symbols, err := ws.ListSymbols(ctx, stringArg(args, "path"))
			if err != nil {
				return "", err
			}
			if len(symbols) == 0 {
				return "(no symbols found)", nil
			}
			return strings.Join(symbols, "\n"), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "readSymbol",
		Description: "read the source of one named symbol in a file",
		Capability:  CapabilityReadOnly,
		Schema: Schema{
			Required: []string{"path", "name"},
			Properties: map[string]Property{
				"path": {Type: "string", Description: "path relative to the project root"},
				"name": {Type: "string", Description: "symbol name as reported by listSymbols"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return ws.ReadSymbol(ctx, stringArg(args, "path"), stringArg(args, "name"))
		},
	})

	r.MustRegister(&Tool{
		Name:        "askUser",
		Description: "ask the human operator a clarifying question and wait for the answer",
		Capability:  CapabilityReadOnly,
		Schema: Schema{
			Required: []string{"question"},
			Properties: map[string]Property{
				"question": {Type: "string", Description: "the question to put to the human"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			answer, err := ask(ctx, stringArg(args, "question"))
			if err != nil {
				// An unanswered human is not something the model can talk
				// its way around; end the task.
				return "", Fatal(err)
			}
			return answer, nil
		},
	})

	// Mutating operations are registered so the dispatcher can name them in
	// its fail-closed observation. They execute only through plan steps.
	for name, desc := range map[string]string{
		"writeFile":      "write content to a file (plan-only)",
		"executeCommand": "run a shell command (plan-only)",
	} {
		name, desc := name, desc
		r.MustRegister(&Tool{
			Name:        name,
			Description: desc,
			Capability:  CapabilityMutating,
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return "", fmt.Errorf("mutating tool %s must run inside an approved plan", name)
			},
		})
	}

	return r
}

// stringArg extracts a string argument, tolerating absent or non-string values.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an integer argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
