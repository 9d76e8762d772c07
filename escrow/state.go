package escrow

import "fmt"

// State is the phase of a match record. It is the only source of truth for
// which sides have funded.
type State uint8

const (
	StateInit State = iota
	StateHostFunded
	StateBothFunded
	StateSettled
	StateRefunded
)

var stateNames = map[State]string{
	StateInit:       "init",
	StateHostFunded: "host_funded",
	StateBothFunded: "both_funded",
	StateSettled:    "settled",
	StateRefunded:   "refunded",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Terminal reports whether no transition can leave s.
func (s State) Terminal() bool {
	return s == StateSettled || s == StateRefunded
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown match state %q", name)
}

// ActiveStates are the phases listed by default in the lobby view.
var ActiveStates = []State{StateInit, StateHostFunded, StateBothFunded}
