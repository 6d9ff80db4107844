// Package statuscode classifies the signed status codes BigBoost attaches to
// every dataset in a query response.
package statuscode

// Category groups provider status codes by the subsystem that produced them.
type Category string

const (
	InputData  Category = "INPUT_DATA" // -100 to -999
	Login      Category = "LOGIN"      // -1000 to -1199
	Internal   Category = "INTERNAL"   // -1200 to -1999, and anything unmapped
	OnDemand   Category = "ON_DEMAND"  // -2000 to -2999
	Monitoring Category = "MONITORING" // -3000 and below
)

// Classify maps a status code to its category. Codes outside the documented
// ranges, including non-negative ones, fall back to Internal.
func Classify(code int) Category {
	switch {
	case code >= -999 && code <= -100:
		return InputData
	case code >= -1199 && code <= -1000:
		return Login
	case code >= -1999 && code <= -1200:
		return Internal
	case code >= -2999 && code <= -2000:
		return OnDemand
	case code <= -3000:
		return Monitoring
	default:
		return Internal
	}
}

// IsError reports whether code signals a failure.
func IsError(code int) bool {
	return code < 0
}
