package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// StatusEntry is one status tuple returned by the provider. Decoding is
// case-insensitive, so both {code,message} and {Code,Message} bind.
type StatusEntry struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Dataset string `json:"dataset,omitempty"`
}

// TextContent is the protocol content block every tool call resolves to.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const ContentTypeText = "text"

type errorBody struct {
	Code     *int     `json:"code,omitempty"`
	Message  string   `json:"message"`
	Category string   `json:"category,omitempty"`
	Issues   []string `json:"issues,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// FormatResponse renders a successful tool result as indented JSON text.
func FormatResponse(v any) TextContent {
	text, err := encodeIndented(v)
	if err != nil {
		return FormatError(err)
	}
	return TextContent{Type: ContentTypeText, Text: text}
}

// FormatError renders any error as {"error": {...}}. It never fails: values
// outside the taxonomy fall back to their message, nil to "Erro desconhecido".
func FormatError(err error) TextContent {
	body := errorBody{Message: unknownErrorMessage}

	var known Error
	switch {
	case err == nil:
	case errors.As(err, &known):
		body = errorBodyFor(known)
	case strings.TrimSpace(err.Error()) != "":
		body.Message = err.Error()
	}

	text, encErr := encodeIndented(errorEnvelope{Error: body})
	if encErr != nil {
		text = `{"error":{"message":"` + unknownErrorMessage + `"}}`
	}
	return TextContent{Type: ContentTypeText, Text: text}
}

func errorBodyFor(err Error) errorBody {
	switch e := err.(type) {
	case *ProviderStatusError:
		if e == nil {
			return errorBody{Message: unknownErrorMessage}
		}
		code := e.Code
		return errorBody{Code: &code, Message: e.Message, Category: string(e.Category)}
	case *ValidationError:
		if e == nil {
			return errorBody{Message: unknownErrorMessage}
		}
		return errorBody{Message: e.Error(), Issues: e.Issues}
	case *RateLimitExceededError:
		if e == nil {
			return errorBody{Message: unknownErrorMessage}
		}
		return errorBody{Message: e.Error()}
	case *DatasetUnavailableError:
		if e == nil {
			return errorBody{Message: unknownErrorMessage}
		}
		return errorBody{Message: e.Error()}
	case *TransportError:
		if e == nil {
			return errorBody{Message: unknownErrorMessage}
		}
		return errorBody{Message: e.Error()}
	case *UnknownError:
		if e == nil {
			return errorBody{Message: unknownErrorMessage}
		}
		return errorBody{Message: e.Error()}
	default:
		return errorBody{Message: unknownErrorMessage}
	}
}

func encodeIndented(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
