package supervisor

import "runtime"

// Role identifies a supervised child process.
type Role int

const (
	RoleBackground Role = iota
	RoleUI
)

// Roles lists every role in stop order: the UI goes down first.
func Roles() []Role {
	return []Role{RoleUI, RoleBackground}
}

func (r Role) String() string {
	switch r {
	case RoleBackground:
		return "background"
	case RoleUI:
		return "ui"
	default:
		return "unknown"
	}
}

// ExecutableName returns the default sibling executable for the role.
func (r Role) ExecutableName() string {
	name := "bong-" + r.String()
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}
