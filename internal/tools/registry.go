// Package tools holds the registered query tools and the single entry point
// used to invoke them, both over MCP and over the HTTP facade.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/felipepmaragno/bigboost-gateway/internal/domain"
	"github.com/felipepmaragno/bigboost-gateway/internal/metrics"
	"github.com/felipepmaragno/bigboost-gateway/internal/telemetry"
)

var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrInvalidTool   = errors.New("invalid tool definition")
)

// Handler runs a tool. args has already been checked against the tool's
// input schema. The returned value is rendered with domain.FormatResponse.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Descriptor is the public description of a registered tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// Result is what a tool invocation hands back to the caller.
type Result struct {
	Content []domain.TextContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}

// Text returns the concatenated text of every content item.
func (r Result) Text() string {
	var sb strings.Builder
	for _, c := range r.Content {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

type entry struct {
	desc    Descriptor
	schema  *jsonschema.Schema
	handler Handler
}

type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*entry
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*entry),
		logger: logger,
	}
}

// Register adds a tool. The schema must be a JSON Schema object describing
// the tool arguments.
func (r *Registry) Register(name, description string, schema map[string]any, handler Handler) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if handler == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrInvalidTool, name)
	}
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}

	compiled, err := compileSchema(name, schema)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTool, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	r.tools[name] = &entry{
		desc: Descriptor{
			Name:        name,
			Description: description,
			Schema:      schema,
		},
		schema:  compiled,
		handler: handler,
	}
	return nil
}

// List returns every registered tool sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Call invokes the named tool. It never fails: every problem, including a
// panicking handler, comes back as an error Result.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (res Result) {
	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = WithRequestID(ctx, requestID)
	}

	ctx, span := telemetry.StartSpan(ctx, "tool.call")
	defer span.End()
	telemetry.AddToolAttributes(span, name, requestID)

	start := time.Now()
	logger := r.logger.With("tool", name, "request_id", requestID)

	defer func() {
		if p := recover(); p != nil {
			// Only error values keep their message.
			err, ok := p.(error)
			if !ok {
				err = &domain.UnknownError{}
			}
			logger.Error("tool handler panicked", "panic", fmt.Sprint(p))
			telemetry.AddErrorAttribute(span, err)
			res = errorResult(err)
		}

		status := "success"
		if res.IsError {
			status = "error"
		}
		metrics.RecordToolCall(name, status, time.Since(start).Seconds())
	}()

	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		err := &domain.UnknownError{Message: fmt.Sprintf("Ferramenta desconhecida: %s", name)}
		logger.Warn("unknown tool")
		return errorResult(err)
	}

	if err := validateArgs(e.schema, args); err != nil {
		logger.Info("tool arguments rejected", "error", err)
		return errorResult(err)
	}

	value, err := e.handler(ctx, normalizeArgs(args))
	if err != nil {
		telemetry.AddErrorAttribute(span, err)
		logger.Warn("tool call failed",
			"error", err,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return errorResult(err)
	}

	logger.Info("tool call completed", "latency_ms", time.Since(start).Milliseconds())
	return Result{Content: []domain.TextContent{domain.FormatResponse(value)}}
}

// Install registers every tool on an MCP server. Invocations are routed
// through Call.
func (r *Registry) Install(server *mcp.Server) {
	for _, d := range r.List() {
		name := d.Name
		server.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.Schema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			return toMCP(r.Call(ctx, name, args)), nil
		})
	}
}

func toMCP(res Result) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(res.Content))
	for _, c := range res.Content {
		content = append(content, &mcp.TextContent{Text: c.Text})
	}
	return &mcp.CallToolResult{
		Content: content,
		IsError: res.IsError,
	}
}

func errorResult(err error) Result {
	return Result{
		Content: []domain.TextContent{domain.FormatError(err)},
		IsError: true,
	}
}

func normalizeArgs(args json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(args))
	if trimmed == "" || trimmed == "null" {
		return json.RawMessage("{}")
	}
	return args
}
