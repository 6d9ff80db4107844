package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/felipepmaragno/bigboost-gateway/internal/domain"
)

var docSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"cpf": map[string]any{
			"type":    "string",
			"pattern": `^\d{11}$`,
		},
	},
	"required":             []any{"cpf"},
	"additionalProperties": false,
}

func echoHandler(ctx context.Context, args json.RawMessage) (any, error) {
	var in map[string]any
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	return map[string]any{"echo": in}, nil
}

func decodeText(t *testing.T, res Result) map[string]any {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(res.Content))
	}
	if res.Content[0].Type != domain.ContentTypeText {
		t.Errorf("content type = %q", res.Content[0].Type)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(res.Content[0].Text), &out); err != nil {
		t.Fatalf("content is not JSON: %v (%s)", err, res.Content[0].Text)
	}
	return out
}

func errorBody(t *testing.T, res Result) map[string]any {
	t.Helper()
	out := decodeText(t, res)
	body, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected an error envelope, got %v", out)
	}
	return body
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.Register("consultaPessoa", "d", docSchema, echoHandler); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	err := r.Register("consultaPessoa", "d", docSchema, echoHandler)
	if !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegister_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		toolName string
		schema   map[string]any
		handler  Handler
	}{
		{"empty name", "", docSchema, echoHandler},
		{"nil handler", "x", docSchema, nil},
		{"bad schema", "x", map[string]any{"type": 42}, echoHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			err := r.Register(tt.toolName, "d", tt.schema, tt.handler)
			if !errors.Is(err, ErrInvalidTool) {
				t.Errorf("expected ErrInvalidTool, got %v", err)
			}
		})
	}
}

func TestCall_Success(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("consultaPessoa", "d", docSchema, echoHandler)

	res := r.Call(context.Background(), "consultaPessoa", json.RawMessage(`{"cpf":"12345678901"}`))

	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Text())
	}
	out := decodeText(t, res)
	echo := out["echo"].(map[string]any)
	if echo["cpf"] != "12345678901" {
		t.Errorf("echo = %v", echo)
	}
	if !strings.Contains(res.Text(), "\n  ") {
		t.Error("response should be indented with two spaces")
	}
}

func TestCall_SchemaViolation(t *testing.T) {
	called := false
	r := NewRegistry(nil)
	r.Register("consultaPessoa", "d", docSchema, func(ctx context.Context, args json.RawMessage) (any, error) {
		called = true
		return nil, nil
	})

	tests := []struct {
		name string
		args string
	}{
		{"missing field", `{}`},
		{"bad pattern", `{"cpf":"123"}`},
		{"extra field", `{"cpf":"12345678901","x":1}`},
		{"not an object", `[1,2]`},
		{"not json", `{`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Call(context.Background(), "consultaPessoa", json.RawMessage(tt.args))
			if !res.IsError {
				t.Fatal("expected an error result")
			}
			out := errorBody(t, res)
			issues, ok := out["issues"].([]any)
			if !ok || len(issues) == 0 {
				t.Errorf("expected validation issues, got %v", out)
			}
		})
	}

	if called {
		t.Error("handler must not run on invalid arguments")
	}
}

func TestCall_HandlerErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantMsg   string
		wantField string
	}{
		{
			name:    "rate limit",
			err:     &domain.RateLimitExceededError{WaitTime: 60 * time.Second},
			wantMsg: "Limite de requisições excedido. Tente novamente em 60 segundos.",
		},
		{
			name:      "provider status",
			err:       &domain.ProviderStatusError{Code: -1001, Message: "login", Category: "login"},
			wantMsg:   "login",
			wantField: "category",
		},
		{
			name:    "plain error",
			err:     errors.New("boom"),
			wantMsg: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			r.Register("t", "d", nil, func(ctx context.Context, args json.RawMessage) (any, error) {
				return nil, tt.err
			})

			res := r.Call(context.Background(), "t", nil)

			if !res.IsError {
				t.Fatal("expected error result")
			}
			out := errorBody(t, res)
			if out["message"] != tt.wantMsg {
				t.Errorf("message = %v, want %q", out["message"], tt.wantMsg)
			}
			if tt.wantField != "" {
				if _, ok := out[tt.wantField]; !ok {
					t.Errorf("missing field %q in %v", tt.wantField, out)
				}
			}
		})
	}
}

func TestCall_Panic(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantMsg string
	}{
		{"string value", "kaboom", "Erro desconhecido"},
		{"error value", errors.New("boom"), "boom"},
		{"domain error", &domain.DatasetUnavailableError{Dataset: "basic_data"}, `Dataset "basic_data" não está disponível para o seu usuário.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			r.Register("t", "d", nil, func(ctx context.Context, args json.RawMessage) (any, error) {
				panic(tt.value)
			})

			res := r.Call(context.Background(), "t", nil)

			if !res.IsError {
				t.Fatal("expected error result")
			}
			if out := errorBody(t, res); out["message"] != tt.wantMsg {
				t.Errorf("message = %v, want %q", out["message"], tt.wantMsg)
			}
		})
	}
}

func TestCall_UnknownTool(t *testing.T) {
	r := NewRegistry(nil)

	res := r.Call(context.Background(), "nope", nil)

	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(res.Text(), "nope") {
		t.Errorf("text = %s", res.Text())
	}
}

func TestCall_RequestIDPropagates(t *testing.T) {
	var seen string
	r := NewRegistry(nil)
	r.Register("t", "d", nil, func(ctx context.Context, args json.RawMessage) (any, error) {
		seen = RequestIDFrom(ctx)
		return "ok", nil
	})

	r.Call(WithRequestID(context.Background(), "req-1"), "t", nil)
	if seen != "req-1" {
		t.Errorf("request id = %q, want req-1", seen)
	}

	r.Call(context.Background(), "t", nil)
	if seen == "" || seen == "req-1" {
		t.Errorf("expected a generated request id, got %q", seen)
	}
}

func TestList_Sorted(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"consultaQsa", "consultaEmpresa", "consultaPessoa"} {
		if err := r.Register(name, "desc "+name, nil, echoHandler); err != nil {
			t.Fatal(err)
		}
	}

	list := r.List()
	want := []string{"consultaEmpresa", "consultaPessoa", "consultaQsa"}
	if len(list) != len(want) {
		t.Fatalf("len = %d", len(list))
	}
	for i, d := range list {
		if d.Name != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, d.Name, want[i])
		}
		if d.Schema["type"] != "object" {
			t.Errorf("%s: default schema = %v", d.Name, d.Schema)
		}
	}
	if !r.Has("consultaQsa") || r.Has("other") {
		t.Error("Has() mismatch")
	}
}

func TestInstall_MCPRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r := NewRegistry(nil)
	r.Register("consultaPessoa", "Consulta pessoa por CPF", docSchema, echoHandler)
	r.Register("falha", "sempre falha", nil, func(ctx context.Context, args json.RawMessage) (any, error) {
		return nil, &domain.TransportError{StatusCode: 502, Message: "Bad Gateway"}
	})

	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "test"}, nil)
	r.Install(server)

	st, ct := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	listed, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(listed.Tools) != 2 {
		t.Fatalf("listed %d tools, want 2", len(listed.Tools))
	}

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "consultaPessoa",
		Arguments: map[string]any{"cpf": "12345678901"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected IsError")
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "12345678901") {
		t.Errorf("text = %s", text)
	}

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "falha", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Error("expected IsError for failing tool")
	}
	text = res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "Erro na consulta (502): Bad Gateway") {
		t.Errorf("text = %s", text)
	}
}
