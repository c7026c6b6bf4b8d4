package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"codescout/internal/logging"
)

// Registry holds all available tools and provides lookup and dispatch.
// It is thread-safe; collaborators backing the tools are per-project
// singletons shared across concurrent tasks.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool

	logging.ToolsDebug("registered tool %s (capability=%s)", tool.Name, tool.Capability)
	return nil
}

// MustRegister registers a tool and panics on error. For static
// registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadOnlyNames returns the names of all read-only tools, sorted.
func (r *Registry) ReadOnlyNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name, tool := range r.tools {
		if tool.Capability == CapabilityReadOnly {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Describe renders the catalog entries for the given tool names, one per
// line, for inclusion in the model prompt. Unknown names are skipped.
func (r *Registry) Describe(names []string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, name := range names {
		tool, ok := r.tools[name]
		if !ok {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(tool.Name)
		if len(tool.Schema.Properties) > 0 {
			args := make([]string, 0, len(tool.Schema.Properties))
			for arg, prop := range tool.Schema.Properties {
				args = append(args, fmt.Sprintf("%s: %s", arg, prop.Type))
			}
			sort.Strings(args)
			sb.WriteString("(")
			sb.WriteString(strings.Join(args, ", "))
			sb.WriteString(")")
		}
		sb.WriteString(" — ")
		sb.WriteString(tool.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}

// validateArgs checks that all required arguments are present.
func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}
	return nil
}
