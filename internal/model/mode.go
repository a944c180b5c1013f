package model

// Mode selects how unresolved parameters and loop repeats are answered.
type Mode int

const (
	// ModeInteractive prompts the user.
	ModeInteractive Mode = iota
	// ModeNonInteractive reads command-line values and never repeats loops.
	ModeNonInteractive
)

func (m Mode) String() string {
	if m == ModeNonInteractive {
		return "non-interactive"
	}
	return "interactive"
}
