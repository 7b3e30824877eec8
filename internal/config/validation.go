package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "hostname_port":
		return "must be in format 'host:port'"
	case "host_or_ip":
		return "must be an IP address or a hostname"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	ItemName  string // For scenarios: the scenario name
	FieldPath string // Dot-notation field path (e.g., "general.source")
	Message   string // Human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for _, e := range ve {
		sb.WriteString("  - ")
		if e.ItemName != "" {
			sb.WriteString("[" + e.ItemName + "] ")
		}
		sb.WriteString(e.FieldPath + ": " + e.Message + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// convertValidatorErrors converts validator.ValidationErrors into our
// ValidationErrors with readable messages and field paths.
func convertValidatorErrors(err error, pathPrefix string, itemName string) ValidationErrors {
	var converted ValidationErrors

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{
			ItemName:  itemName,
			FieldPath: pathPrefix,
			Message:   err.Error(),
		}}
	}

	for _, fe := range fieldErrors {
		field := strings.ToLower(fe.Field())
		converted = append(converted, ValidationError{
			ItemName:  itemName,
			FieldPath: pathPrefix + "." + field,
			Message:   getValidationMessage(fe),
		})
	}
	return converted
}
