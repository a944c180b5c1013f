package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParameterType is the declared type of a parameter. Values are always stored
// as text and converted with Convert at the point of use.
type ParameterType int

const (
	TypeString ParameterType = iota
	TypeInteger
	TypeBoolean
	TypeAuto
	TypeUndefined
)

var parameterTypeNames = map[ParameterType]string{
	TypeString:    "STRING",
	TypeInteger:   "INTEGER",
	TypeBoolean:   "BOOLEAN",
	TypeAuto:      "AUTO",
	TypeUndefined: "UNDEFINED",
}

func (t ParameterType) String() string {
	if s, ok := parameterTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ParameterType(%d)", int(t))
}

// ParseParameterType accepts the document spelling (case-insensitive).
// An empty string yields the STRING default.
func ParseParameterType(s string) (ParameterType, error) {
	if s == "" {
		return TypeString, nil
	}
	for t, name := range parameterTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return TypeUndefined, fmt.Errorf("unknown parameter type %q", s)
}

func (t ParameterType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ParameterType) UnmarshalText(b []byte) error {
	v, err := ParseParameterType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Parameter is one named value flowing into or out of an action.
//
// Three names are involved and they are deliberately kept apart:
//   - Name is the tree-facing key, also the key stored in the run context.
//   - CustomInputName, when set, is the run-context key read instead of Name.
//   - OverrideParameterName, when set, is the handler-facing name Name binds to.
type Parameter struct {
	Name                        string        `yaml:"name" json:"name"`
	Type                        ParameterType `yaml:"type,omitempty" json:"type"`
	Value                       *string       `yaml:"value,omitempty" json:"value,omitempty"`
	DefaultValue                *string       `yaml:"default_value,omitempty" json:"default_value,omitempty"`
	PresetValue                 *string       `yaml:"preset_value,omitempty" json:"preset_value,omitempty"`
	APIParameterName            string        `yaml:"api_parameter_name,omitempty" json:"api_parameter_name,omitempty"`
	CustomInputName             string        `yaml:"custom_input_name,omitempty" json:"custom_input_name,omitempty"`
	OverrideParameterName       string        `yaml:"override_parameter_name,omitempty" json:"override_parameter_name,omitempty"`
	CustomText                  string        `yaml:"custom_text,omitempty" json:"custom_text,omitempty"`
	NonStick                    bool          `yaml:"non_stick,omitempty" json:"non_stick,omitempty"`
	CommandParameter            bool          `yaml:"command_parameter,omitempty" json:"command_parameter,omitempty"`
	CustomParameter             bool          `yaml:"custom_parameter,omitempty" json:"custom_parameter,omitempty"`
	OverrideOutputParameterName bool          `yaml:"override_output_parameter_name,omitempty" json:"override_output_parameter_name,omitempty"`
	ActionIndex                 int           `yaml:"-" json:"action_index"`
}

// NewParameter builds a STRING-typed parameter carrying value.
func NewParameter(name, value string, actionIndex int) *Parameter {
	return &Parameter{Name: name, Type: TypeString, Value: &value, ActionIndex: actionIndex}
}

// HasValue reports whether a value has been bound.
func (p *Parameter) HasValue() bool { return p.Value != nil }

// Text returns the stored value, or "" when unbound.
func (p *Parameter) Text() string {
	if p.Value == nil {
		return ""
	}
	return *p.Value
}

// SetValue binds v as the stored text.
func (p *Parameter) SetValue(v string) { p.Value = &v }

// InputName is the run-context key this parameter reads from.
func (p *Parameter) InputName() string {
	if p.CustomInputName != "" {
		return p.CustomInputName
	}
	return p.Name
}

// HandlerName is the name this parameter binds to on the handler side.
func (p *Parameter) HandlerName() string {
	if p.OverrideParameterName != "" {
		return p.OverrideParameterName
	}
	return p.Name
}

// IsOutput reports whether the parameter is populated by an action's output
// rather than resolved before dispatch.
func (p *Parameter) IsOutput() bool {
	return p.Type == TypeAuto || p.OverrideOutputParameterName
}

// Typed converts the stored text per the declared type.
func (p *Parameter) Typed() (any, error) {
	v, err := Convert(p.Text(), p.Type)
	if err != nil {
		var ce *ConversionError
		if asConversion(err, &ce) {
			ce.Parameter = p.Name
		}
		return nil, err
	}
	return v, nil
}

// Clone returns a deep copy.
func (p *Parameter) Clone() *Parameter {
	c := *p
	c.Value = cloneString(p.Value)
	c.DefaultValue = cloneString(p.DefaultValue)
	c.PresetValue = cloneString(p.PresetValue)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Convert turns raw text into the native value for t. STRING, AUTO and
// UNDEFINED pass through unchanged.
func Convert(raw string, t ParameterType) (any, error) {
	switch t {
	case TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, &ConversionError{Value: raw, Type: t, Err: fmt.Errorf("%q is not a valid integer", raw)}
		}
		return n, nil
	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, &ConversionError{Value: raw, Type: t, Err: fmt.Errorf("%q is not a valid boolean value", raw)}
	default:
		return raw, nil
	}
}
