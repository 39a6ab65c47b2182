package agent

import (
	"strings"

	"github.com/pkg/errors"
)

// Role selects destination strategy of an agent
type Role int

const (
	// Leader wanders around its own position
	Leader Role = iota
	// Follower moves around the nearest leader
	Follower
)

// String implements fmt.Stringer
func (role Role) String() string {
	switch role {
	case Leader:
		return "leader"
	case Follower:
		return "follower"
	}
	return "unknown"
}

// ParseRole parses "leader" or "follower", case insensitive
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leader":
		return Leader, nil
	case "follower":
		return Follower, nil
	}
	return Leader, errors.Errorf("unknown role '%s'", s)
}
