package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal output.
// Errors outside the taxonomy are printed as-is.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ke, ok := As(err)
	if !ok {
		return fmt.Sprintf("Error: %s\n", err.Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ke.Message))
	if ke.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ke.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ke.Code))
	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error for machine consumers.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ke, ok := As(err)
	if !ok {
		ke = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       ke.Code,
		Message:    ke.Message,
		Category:   string(ke.Category),
		Details:    ke.Details,
		Suggestion: ke.Suggestion,
	}
	if ke.Cause != nil {
		je.Cause = ke.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs returns slog attributes describing err.
func LogAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	ke, ok := As(err)
	if !ok {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", ke.Code),
		slog.String("error", ke.Message),
		slog.String("category", string(ke.Category)),
	}
	if ke.Cause != nil {
		attrs = append(attrs, slog.String("cause", ke.Cause.Error()))
	}

	keys := make([]string, 0, len(ke.Details))
	for k := range ke.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String("detail_"+k, ke.Details[k]))
	}
	return attrs
}
