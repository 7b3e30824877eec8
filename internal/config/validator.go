package config

import (
	"fmt"
	"net/netip"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var hostnameRegexp = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("host_or_ip", validateHostOrIP)
	return v
}

// validateHostOrIP accepts an IP address literal or a resolvable-looking
// hostname.
func validateHostOrIP(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}
	if _, err := netip.ParseAddr(value); err == nil {
		return true
	}
	return hostnameRegexp.MatchString(value)
}

// ValidateConfig validates the entire configuration and returns all
// validation errors at once.
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	if c.General == nil {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "general",
			Message:   "configuration must contain 'general' section",
		})
		return validationErrors
	}

	if err := validate.Struct(c.General); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "general", "")...)
	}

	if c.General.Source == SourceFile && c.General.DumpDir == "" {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "general.dump_dir",
			Message:   "dump_dir is required when source = \"file\"",
		})
	}

	validationErrors = append(validationErrors, c.validateScenarios()...)

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (c *Config) validateScenarios() ValidationErrors {
	var validationErrors ValidationErrors

	seenNames := make(map[string]bool)

	for i, scenario := range c.Scenarios {
		itemName := scenario.Name
		if itemName == "" {
			itemName = scenarioIndexName(i)
		}

		if err := validate.Struct(scenario); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, scenarioIndexName(i), itemName)...)
		}

		if scenario.Name != "" && seenNames[scenario.Name] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "name",
				Message:   "duplicate scenario name: " + scenario.Name,
			})
		}
		seenNames[scenario.Name] = true
	}

	return validationErrors
}

func scenarioIndexName(i int) string {
	return fmt.Sprintf("scenario.%d", i)
}
