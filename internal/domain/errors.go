package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/felipepmaragno/bigboost-gateway/internal/statuscode"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrProviderStatus     = errors.New("provider status error")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	ErrTransport          = errors.New("transport error")
	ErrUnknown            = errors.New("unknown error")
)

// DatasetUnavailableMessage is the status message BigBoost uses when the
// caller is not entitled to a requested dataset.
const DatasetUnavailableMessage = "DATASET UNAVAILABLE"

// UnknownDataset names the dataset when the provider omits it.
const UnknownDataset = "desconhecido"

const unknownErrorMessage = "Erro desconhecido"

// Error is the closed set of failures the gateway reports to tool callers.
// Only the variants declared in this file implement it.
type Error interface {
	error
	bigboostError()
}

// ValidationError reports caller input rejected before any provider call.
type ValidationError struct {
	Issues []string
}

func NewValidationError(issues ...string) *ValidationError {
	return &ValidationError{Issues: issues}
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "parâmetros inválidos"
	}
	return strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Unwrap() error  { return ErrValidation }
func (e *ValidationError) bigboostError() {}

// ProviderStatusError is raised for the first negative status code in a
// provider response.
type ProviderStatusError struct {
	Code     int
	Message  string
	Category statuscode.Category
}

func (e *ProviderStatusError) Error() string  { return e.Message }
func (e *ProviderStatusError) Unwrap() error  { return ErrProviderStatus }
func (e *ProviderStatusError) bigboostError() {}

// RateLimitExceededError covers both the local token bucket and HTTP 429
// answers from the provider.
type RateLimitExceededError struct {
	WaitTime time.Duration
}

func (e *RateLimitExceededError) Error() string {
	seconds := int64(math.Ceil(e.WaitTime.Seconds()))
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("Limite de requisições excedido. Tente novamente em %d segundos.", seconds)
}

func (e *RateLimitExceededError) Unwrap() error  { return ErrRateLimitExceeded }
func (e *RateLimitExceededError) bigboostError() {}

type DatasetUnavailableError struct {
	Dataset string
}

func (e *DatasetUnavailableError) Error() string {
	return fmt.Sprintf("Dataset %q não está disponível para o seu usuário.", e.Dataset)
}

func (e *DatasetUnavailableError) Unwrap() error  { return ErrDatasetUnavailable }
func (e *DatasetUnavailableError) bigboostError() {}

// TransportError wraps a non-2xx answer or a network failure. StatusCode is
// 500 when no HTTP response was received.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Erro na consulta (%d): %s", e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error  { return ErrTransport }
func (e *TransportError) bigboostError() {}

type UnknownError struct {
	Message string
}

func (e *UnknownError) Error() string {
	if e.Message == "" {
		return unknownErrorMessage
	}
	return e.Message
}

func (e *UnknownError) Unwrap() error  { return ErrUnknown }
func (e *UnknownError) bigboostError() {}

// ProcessStatusCodes fails with a ProviderStatusError for the first entry,
// in order, whose code is an error. Empty input is accepted.
func ProcessStatusCodes(statuses []StatusEntry) error {
	for _, s := range statuses {
		if statuscode.IsError(s.Code) {
			return &ProviderStatusError{
				Code:     s.Code,
				Message:  s.Message,
				Category: statuscode.Classify(s.Code),
			}
		}
	}
	return nil
}
