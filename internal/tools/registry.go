package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lmercat/webpilot/internal/types"
)

// Registry holds all registered tools
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has returns true if a tool with the given name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List returns all registered tool names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns definitions for all registered tools, sorted by name
func (r *Registry) Definitions() []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]types.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, ToDefinition(tool))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// BuildToolSummary generates a prompt section listing available tools.
func (r *Registry) BuildToolSummary() string {
	return SummarizeDefinitions(r.Definitions())
}

// SummarizeDefinitions renders a prompt section listing tools, one
// line per tool with its first description sentence followed by its
// argument names.
func SummarizeDefinitions(defs []types.ToolDefinition) string {
	if len(defs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Available Tools\n")
	for _, d := range defs {
		desc := d.Description
		if idx := strings.IndexAny(desc, ".\n"); idx > 0 {
			desc = desc[:idx]
		}
		fmt.Fprintf(&sb, "- %s: %s\n", d.Name, desc)
		if props, ok := d.Schema["properties"].(map[string]any); ok && len(props) > 0 {
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintf(&sb, "  arguments: %s\n", strings.Join(names, ", "))
		}
	}
	return sb.String()
}
