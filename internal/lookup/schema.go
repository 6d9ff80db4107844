package lookup

// Input formats accepted by the tools. Punctuation is stripped before the
// query is sent.
const (
	cpfPattern      = `^\d{3}\.?\d{3}\.?\d{3}-?\d{2}$`
	cnpjPattern     = `^\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}$`
	telefonePattern = `^(\+\d{1,3})?[\s.-]?\(?\d{1,3}\)?[\s.-]?\d{3,5}[\s.-]?\d{4}$`
	emailPattern    = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
)

var cpfProperty = map[string]any{
	"type":        "string",
	"description": "CPF da pessoa, com ou sem pontuação",
	"minLength":   11,
	"maxLength":   14,
	"pattern":     cpfPattern,
}

var cnpjProperty = map[string]any{
	"type":        "string",
	"description": "CNPJ da empresa, com ou sem pontuação",
	"minLength":   14,
	"maxLength":   18,
	"pattern":     cnpjPattern,
}

var telefoneProperty = map[string]any{
	"type":        "string",
	"description": "Número de telefone, com ou sem DDI/DDD",
	"minLength":   8,
	"maxLength":   20,
	"pattern":     telefonePattern,
}

var emailProperty = map[string]any{
	"type":        "string",
	"description": "Endereço de email",
	"minLength":   5,
	"maxLength":   254,
	"pattern":     emailPattern,
}

// Tag content rules are enforced by the gateway; the schema only fixes the
// shape.
var tagsProperty = map[string]any{
	"type":                 "object",
	"description":          "Tags opcionais repassadas à BigBoost para rastreio da consulta",
	"additionalProperties": map[string]any{"type": "string"},
}
