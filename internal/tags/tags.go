// Package tags validates the caller-supplied tags BigBoost attaches to a
// query for traceability.
package tags

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/felipepmaragno/bigboost-gateway/internal/domain"
)

const (
	MaxTags   = 10
	MaxLength = 255
)

var (
	keyPattern   = regexp.MustCompile(`^[A-Za-z_]+$`)
	valuePattern = regexp.MustCompile(`^[A-Za-z0-9 _*\-+,.:!@#&/]+$`)
)

const (
	MsgTooManyTags   = "Máximo de 10 tags por requisição"
	MsgKeyTooShort   = "A chave da tag deve ter pelo menos 1 caractere"
	MsgKeyTooLong    = "A chave da tag deve ter no máximo 255 caracteres"
	MsgKeyPattern    = "A chave da tag deve conter apenas letras A-Z ou _ (underline)"
	MsgValueTooShort = "O valor da tag deve ter pelo menos 1 caractere"
	MsgValueTooLong  = "O valor da tag deve ter no máximo 255 caracteres"
	MsgValuePattern  = "O valor da tag deve conter apenas letras, números, espaços ou caracteres especiais permitidos"
)

// Validate checks every tag and returns a *domain.ValidationError listing all
// violations, or nil. A nil or empty map is valid.
func Validate(tags map[string]string) error {
	var issues []string

	if len(tags) > MaxTags {
		issues = append(issues, "tags: "+MsgTooManyTags)
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, msg := range checkKey(k) {
			issues = append(issues, fmt.Sprintf("tags.%s: %s", k, msg))
		}
		for _, msg := range checkValue(tags[k]) {
			issues = append(issues, fmt.Sprintf("tags.%s: %s", k, msg))
		}
	}

	if len(issues) > 0 {
		return domain.NewValidationError(issues...)
	}
	return nil
}

func checkKey(k string) []string {
	return check(k, keyPattern, MsgKeyTooShort, MsgKeyTooLong, MsgKeyPattern)
}

func checkValue(v string) []string {
	return check(v, valuePattern, MsgValueTooShort, MsgValueTooLong, MsgValuePattern)
}

func check(s string, pattern *regexp.Regexp, tooShort, tooLong, badPattern string) []string {
	n := utf8.RuneCountInString(s)
	if n < 1 {
		return []string{tooShort}
	}

	var msgs []string
	if n > MaxLength {
		msgs = append(msgs, tooLong)
	}
	if !pattern.MatchString(s) {
		msgs = append(msgs, badPattern)
	}
	return msgs
}
