package engine

import "fmt"

// State is the interpreter's position in an operation run.
type State int

const (
	StateRunning State = iota
	StateLoopPendingRepeat
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateRunning:           "RUNNING",
	StateLoopPendingRepeat: "LOOP_PENDING_REPEAT",
	StateDone:              "DONE",
	StateAborted:           "ABORTED",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// frame is one open loop block.
type frame struct {
	number    int
	start     int
	iteration int
}

// loopStack tracks open loop blocks, innermost last.
type loopStack []*frame

func (s *loopStack) push(f *frame) { *s = append(*s, f) }

func (s *loopStack) pop() *frame {
	if len(*s) == 0 {
		return nil
	}
	f := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return f
}

func (s loopStack) top() *frame {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// repeating reports whether any enclosing block is past its first pass.
func (s loopStack) repeating() bool {
	for _, f := range s {
		if f.iteration > 0 {
			return true
		}
	}
	return false
}
