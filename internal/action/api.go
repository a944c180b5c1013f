package action

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultRequestTimeout is used when an API definition leaves
// request_timeout unset (seconds).
const DefaultRequestTimeout = 10

// APIDefinition is a named set of remote endpoint templates.
type APIDefinition struct {
	Name            string            `yaml:"name" json:"name" validate:"required"`
	ID              string            `yaml:"id" json:"id" validate:"required"`
	RequestTimeout  int               `yaml:"request_timeout" json:"request_timeout" validate:"gt=0"`
	CustomVariables map[string]string `yaml:"custom_variables" json:"custom_variables" validate:"base_url"`
	Description     string            `yaml:"description" json:"description" validate:"required"`
	Endpoints       []*APIEndpoint    `yaml:"endpoints" json:"endpoints" validate:"dive"`
}

// APIEndpoint is one request template. Single-brace {param} tokens are filled
// from action parameters, double-brace {{var}} tokens from the definition's
// custom variables.
type APIEndpoint struct {
	Name              string            `yaml:"name" json:"name" validate:"required"`
	RequestType       string            `yaml:"request_type" json:"request_type" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	URL               string            `yaml:"url" json:"url" validate:"required"`
	Headers           map[string]string `yaml:"headers" json:"headers,omitempty"`
	Data              any               `yaml:"data" json:"data,omitempty"`
	Params            map[string]string `yaml:"params" json:"params,omitempty"`
	ResponseVariables map[string]string `yaml:"response_variables" json:"response_variables,omitempty"`
}

// Endpoint returns the endpoint named name.
func (d *APIDefinition) Endpoint(name string) (*APIEndpoint, bool) {
	for _, ep := range d.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return nil, false
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	// Registration of a fixed tag on a fresh instance cannot fail.
	_ = v.RegisterValidation("base_url", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Map {
			return false
		}
		val := field.MapIndex(reflect.ValueOf("BASE_URL"))
		return val.IsValid() && val.String() != ""
	})
	return v
}

// Validate checks the definition's required fields and normalizes endpoint
// request types to upper case.
func (d *APIDefinition) Validate() error {
	for _, ep := range d.Endpoints {
		if ep != nil {
			ep.RequestType = strings.ToUpper(ep.RequestType)
		}
	}
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("api definition %q: %s", d.ID, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "APIDefinition.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "base_url":
		return field + " must define BASE_URL"
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}
