package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// ToolOutput is one value produced by a tool invocation. Streaming tools
// may produce several; only the last one is persisted onto the result.
type ToolOutput struct {
	Text     string
	Status   models.ToolStatus
	Metadata map[string]any
}

// Success returns a success output with the given text.
func Success(text string) *ToolOutput {
	return &ToolOutput{Text: text, Status: models.ToolStatusSuccess}
}

// Failure returns a failure output with the given text.
func Failure(text string) *ToolOutput {
	return &ToolOutput{Text: text, Status: models.ToolStatusFailure}
}

// Tool is a callable the reasoning backend can request by name.
//
// Execute receives the decoded argument map, already validated against
// Schema. A returned error is converted into a failure output by the
// executor; tools never abort the loop.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, args map[string]any) (*ToolOutput, error)
}

// StreamingTool is a tool that produces a sequence of outputs, for
// example progress updates followed by a final confirmation. The channel
// must be closed when done; the last output before close is persisted.
type StreamingTool interface {
	Tool
	ExecuteStream(ctx context.Context, args map[string]any) (<-chan *ToolOutput, error)
}

// ToolRegistry manages available tools with thread-safe registration and
// lookup. Argument schemas are compiled at registration time so schema
// errors surface at startup, not mid-conversation.
type ToolRegistry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewToolRegistry creates a new empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool to the registry by its name, replacing any
// existing tool with the same name. It fails if the tool's argument
// schema does not compile.
func (r *ToolRegistry) Register(tool Tool) error {
	name := tool.Name()

	var compiled *jsonschema.Schema
	if raw := tool.Schema(); len(raw) > 0 {
		sch, err := jsonschema.CompileString(name+".schema.json", string(raw))
		if err != nil {
			return fmt.Errorf("compile schema for tool %q: %w", name, err)
		}
		compiled = sch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = tool
	if compiled != nil {
		r.schemas[name] = compiled
	} else {
		delete(r.schemas, name)
	}
	return nil
}

// MustRegister registers a tool and panics on schema compile failure.
// Intended for static tool sets wired at startup.
func (r *ToolRegistry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get returns a tool by name and whether it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Validate checks a decoded argument map against the named tool's
// schema. Tools without a schema accept any arguments.
func (r *ToolRegistry) Validate(name string, args map[string]any) error {
	r.mu.RLock()
	sch := r.schemas[name]
	r.mu.RUnlock()
	if sch == nil {
		return nil
	}
	// jsonschema validates the generic decoded form, which is exactly
	// what the tolerant parser produces.
	if err := sch.Validate(normalizeArgs(args)); err != nil {
		return err
	}
	return nil
}

// Defs returns descriptors for all registered tools, sorted by name so
// requests are deterministic.
func (r *ToolRegistry) Defs() []ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDef, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// normalizeArgs converts the argument map to the plain any-typed shape
// the schema validator expects, guarding against typed values a caller
// may have put in the map directly.
func normalizeArgs(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}
