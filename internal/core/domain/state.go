package domain

import (
	"encoding/json"
	"fmt"
)

// ProcessState is the lifecycle state of a background process.
type ProcessState int

const (
	Stopped ProcessState = iota
	Running
)

func (s ProcessState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("ProcessState(%d)", int(s))
	}
}

// MarshalJSON encodes the state as its name.
func (s ProcessState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (s *ProcessState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "stopped":
		*s = Stopped
	case "running":
		*s = Running
	default:
		return fmt.Errorf("unknown process state %q", name)
	}
	return nil
}
