package model

import (
	"fmt"
	"strings"
)

// Status is the outcome of a check or a source. The zero value is StatusPass.
type Status uint8

const (
	StatusPass Status = iota
	StatusNotAvailable
	StatusWarning
	StatusFail
)

// Statuses lists every status in ascending rank.
var Statuses = []Status{StatusPass, StatusNotAvailable, StatusWarning, StatusFail}

// Rank returns an integer rank for source-level comparison (Pass=0, Fail=3).
// Values outside the four statuses rank -1.
func (s Status) Rank() int {
	switch s {
	case StatusPass:
		return 0
	case StatusNotAvailable:
		return 1
	case StatusWarning:
		return 2
	case StatusFail:
		return 3
	default:
		return -1
	}
}

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusNotAvailable:
		return "not_available"
	case StatusWarning:
		return "warning"
	case StatusFail:
		return "fail"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Label is the upper-case form used by the CLI and Markdown renderer.
func (s Status) Label() string {
	return strings.ToUpper(s.String())
}

// Worse returns whichever of s and o ranks higher.
func (s Status) Worse(o Status) Status {
	if o.Rank() > s.Rank() {
		return o
	}
	return s
}

// ParseStatus parses a status string case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass":
		return StatusPass, nil
	case "not_available":
		return StatusNotAvailable, nil
	case "warning":
		return StatusWarning, nil
	case "fail":
		return StatusFail, nil
	default:
		return StatusPass, fmt.Errorf("invalid status: %q", s)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusPass, StatusNotAvailable, StatusWarning, StatusFail:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("invalid status: %d", uint8(s))
	}
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
