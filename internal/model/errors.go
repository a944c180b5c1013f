package model

import (
	"errors"
	"fmt"
)

// ConversionError reports stored text that cannot be converted to its
// declared type.
type ConversionError struct {
	Parameter string
	Value     string
	Type      ParameterType
	Err       error
}

func (e *ConversionError) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("parameter %s: cannot convert to %s: %v", e.Parameter, e.Type, e.Err)
	}
	return fmt.Sprintf("cannot convert to %s: %v", e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func asConversion(err error, target **ConversionError) bool {
	return errors.As(err, target)
}
