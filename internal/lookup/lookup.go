// Package lookup defines the BigBoost query tools exposed to MCP clients.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/felipepmaragno/bigboost-gateway/internal/bigboost"
	"github.com/felipepmaragno/bigboost-gateway/internal/tools"
)

const (
	DatasetBasicData        = "basic_data"
	DatasetDynamicQSAData   = "dynamic_qsa_data"
	DatasetRegistrationData = "registration_data"
)

// Gateway is the part of bigboost.Client the tools depend on.
type Gateway interface {
	ExecuteQuery(ctx context.Context, endpoint string, q bigboost.Query, tags map[string]string) (*bigboost.Response, error)
}

// Output is returned by every tool. Fields are copied from the provider
// answer without reshaping.
type Output struct {
	Result              json.RawMessage `json:"result"`
	Status              json.RawMessage `json:"status"`
	QueryID             string          `json:"queryId,omitempty"`
	ElapsedMilliseconds json.RawMessage `json:"elapsedMilliseconds,omitempty"`
	QueryDate           string          `json:"queryDate,omitempty"`
	Evidences           json.RawMessage `json:"evidences,omitempty"`
}

type definition struct {
	name         string
	description  string
	field        string
	property     map[string]any
	endpoint     string
	dataset      string
	keyword      string
	normalize    func(string) string
	useEvidences bool
}

var definitions = []definition{
	{
		name:        "consultaPessoa",
		description: "Consulta dados básicos de uma pessoa pelo CPF",
		field:       "cpf",
		property:    cpfProperty,
		endpoint:    bigboost.EndpointPessoas,
		dataset:     DatasetBasicData,
		keyword:     "doc",
		normalize:   digitsOnly,
	},
	{
		name:         "consultaPessoaTelefone",
		description:  "Consulta dados básicos de uma pessoa pelo número de telefone",
		field:        "telefone",
		property:     telefoneProperty,
		endpoint:     bigboost.EndpointPessoas,
		dataset:      DatasetBasicData,
		keyword:      "phone",
		normalize:    digitsOnly,
		useEvidences: true,
	},
	{
		name:         "consultaPessoaEmail",
		description:  "Consulta dados básicos de uma pessoa pelo endereço de email",
		field:        "email",
		property:     emailProperty,
		endpoint:     bigboost.EndpointPessoas,
		dataset:      DatasetBasicData,
		keyword:      "email",
		normalize:    strings.TrimSpace,
		useEvidences: true,
	},
	{
		name:        "consultaEmpresa",
		description: "Consulta dados básicos de uma empresa pelo CNPJ",
		field:       "cnpj",
		property:    cnpjProperty,
		endpoint:    bigboost.EndpointEmpresas,
		dataset:     DatasetBasicData,
		keyword:     "doc",
		normalize:   digitsOnly,
	},
	{
		name:        "consultaQsa",
		description: "Consulta o Quadro Societário e Administrativo (QSA) de uma empresa pelo CNPJ",
		field:       "cnpj",
		property:    cnpjProperty,
		endpoint:    bigboost.EndpointEmpresas,
		dataset:     DatasetDynamicQSAData,
		keyword:     "doc",
		normalize:   digitsOnly,
	},
	{
		name:        "consultaRegistroEmpresa",
		description: "Consulta dados de registro de uma empresa pelo CNPJ",
		field:       "cnpj",
		property:    cnpjProperty,
		endpoint:    bigboost.EndpointEmpresas,
		dataset:     DatasetRegistrationData,
		keyword:     "doc",
		normalize:   digitsOnly,
	},
}

// Names lists the tools Register installs, in registration order.
func Names() []string {
	names := make([]string, len(definitions))
	for i, d := range definitions {
		names[i] = d.name
	}
	return names
}

// Register adds every lookup tool to reg.
func Register(reg *tools.Registry, gw Gateway) error {
	for _, d := range definitions {
		if err := reg.Register(d.name, d.description, d.schema(), d.handler(gw)); err != nil {
			return fmt.Errorf("register %s: %w", d.name, err)
		}
	}
	return nil
}

func (d definition) schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			d.field: d.property,
			"tags":  tagsProperty,
		},
		"required": []any{d.field},
	}
}

func (d definition) handler(gw Gateway) tools.Handler {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		var in map[string]json.RawMessage
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}

		var value string
		if err := json.Unmarshal(in[d.field], &value); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.field, err)
		}

		var queryTags map[string]string
		if raw, ok := in["tags"]; ok {
			if err := json.Unmarshal(raw, &queryTags); err != nil {
				return nil, fmt.Errorf("decode tags: %w", err)
			}
		}

		q := bigboost.Query{
			Q:        fmt.Sprintf("%s{%s}", d.keyword, d.normalize(value)),
			Datasets: d.dataset,
		}

		resp, err := gw.ExecuteQuery(ctx, d.endpoint, q, queryTags)
		if err != nil {
			return nil, err
		}
		return newOutput(resp.Envelope, d.useEvidences), nil
	}
}

var (
	emptyArray  = json.RawMessage("[]")
	emptyObject = json.RawMessage("{}")
)

func newOutput(env bigboost.Envelope, withEvidences bool) Output {
	out := Output{
		Result:              orDefault(env.ResultData(), emptyArray),
		Status:              orDefault(env.StatusData(), emptyObject),
		QueryID:             env.QueryID,
		ElapsedMilliseconds: env.ElapsedMilliseconds,
		QueryDate:           env.QueryDate,
	}
	if withEvidences {
		out.Evidences = orDefault(env.Evidences, emptyObject)
	}
	return out
}

func orDefault(raw, def json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return def
	}
	return raw
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
