package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

// Direction tells whether a handler reads or produces a parameter.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	if d == DirectionOutput {
		return "output"
	}
	return "input"
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "input":
		*d = DirectionInput
	case "output":
		*d = DirectionOutput
	default:
		return fmt.Errorf("unknown parameter direction %q", string(b))
	}
	return nil
}

// ParameterDefinition declares one handler-facing parameter.
type ParameterDefinition struct {
	Direction Direction           `json:"direction"`
	Type      model.ParameterType `json:"type"`
}

// In declares an input parameter of type t.
func In(t model.ParameterType) ParameterDefinition {
	return ParameterDefinition{Direction: DirectionInput, Type: t}
}

// Out declares an output parameter of type t.
func Out(t model.ParameterType) ParameterDefinition {
	return ParameterDefinition{Direction: DirectionOutput, Type: t}
}

// HandlerFunc is the uniform call contract of a local action. It receives the
// previous action's result, the run context and its own position in the
// action list, and must always return a result.
type HandlerFunc func(ctx context.Context, last *model.Result, rc *model.RunContext, actionIndex int) *model.Result

// Handler is one entry of an action pack.
type Handler struct {
	Name string
	Func HandlerFunc
	// Parameters must be non-nil; an empty map declares no parameters.
	Parameters map[string]ParameterDefinition
}

// Pack is a named bundle of handlers registered once at startup.
type Pack interface {
	Name() string
	Handlers() []Handler
}
