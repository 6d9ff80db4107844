package tools

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/felipepmaragno/bigboost-gateway/internal/domain"
)

const invalidArgumentsMessage = "argumentos devem ser um objeto JSON"

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	// Round trip so the compiler sees plain JSON values only.
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	url := name + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// validateArgs checks args against schema and reports every violation as a
// ValidationError issue.
func validateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	var inst any
	if err := json.Unmarshal(normalizeArgs(args), &inst); err != nil {
		return domain.NewValidationError(invalidArgumentsMessage)
	}
	if _, ok := inst.(map[string]any); !ok {
		return domain.NewValidationError(invalidArgumentsMessage)
	}

	err := schema.Validate(inst)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return domain.NewValidationError(err.Error())
	}
	return domain.NewValidationError(schemaIssues(ve)...)
}

// schemaIssues turns the compiler's multi-line report into one issue per
// violation, dropping the header line.
func schemaIssues(ve *jsonschema.ValidationError) []string {
	var issues []string
	for _, line := range strings.Split(ve.Error(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		issues = append(issues, strings.TrimPrefix(line, "- "))
	}
	if len(issues) == 0 {
		issues = []string{ve.Error()}
	}
	return issues
}
