package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/tolerance-rules/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so errors match the stored config.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ConfigError reports a rule config that does not match its type's schema.
type ConfigError struct {
	RuleType model.RuleType
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config: %v", e.RuleType, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err (or any error in its chain) is a
// ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// DecodeConfig parses and validates a stored config payload for ruleType.
// An empty payload is treated as "{}" and fails on the required fields.
func DecodeConfig(ruleType model.RuleType, raw json.RawMessage) (model.RuleConfig, error) {
	switch ruleType {
	case model.RuleTypeOneOnOneFrequency:
		return decodeInto[model.OneOnOneConfig](ruleType, raw)
	case model.RuleTypeInitiativeCheckIn:
		return decodeInto[model.InitiativeCheckInConfig](ruleType, raw)
	case model.RuleTypeFeedback360:
		return decodeInto[model.Feedback360Config](ruleType, raw)
	case model.RuleTypeManagerSpan:
		return decodeInto[model.ManagerSpanConfig](ruleType, raw)
	default:
		return nil, fmt.Errorf("unknown rule type %q", ruleType)
	}
}

func decodeInto[T model.RuleConfig](ruleType model.RuleType, raw json.RawMessage) (model.RuleConfig, error) {
	var cfg T
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &ConfigError{RuleType: ruleType, Err: err}
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{RuleType: ruleType, Err: describeValidation(err)}
	}
	return cfg, nil
}

// configFor decodes rule.Config and asserts it to the rule's config type.
func configFor[T model.RuleConfig](rule model.ToleranceRule) (T, error) {
	var zero T
	if want := zero.RuleType(); rule.RuleType != want {
		return zero, fmt.Errorf("rule %s has type %q, expected %q", rule.ID, rule.RuleType, want)
	}
	cfg, err := DecodeConfig(rule.RuleType, rule.Config)
	if err != nil {
		return zero, err
	}
	return cfg.(T), nil
}

// describeValidation flattens validator errors into one readable error.
func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
