// Package ipc implements the loopback control channel shared by the
// supervisor, the background process and the UI process.
package ipc

import "fmt"

// Kind identifies a control command variant.
type Kind uint8

// Command variants. The set is closed; handlers switch over all of them.
const (
	KindStartBackground Kind = iota + 1
	KindStopBackground
	KindStartUI
	KindCloseUI
	KindQuitAll
	KindPing
	KindPong
	KindBackgroundStatus
	KindUIStatus
)

var kindNames = map[Kind]string{
	KindStartBackground:  "StartBackground",
	KindStopBackground:   "StopBackground",
	KindStartUI:          "StartUI",
	KindCloseUI:          "CloseUI",
	KindQuitAll:          "QuitAll",
	KindPing:             "Ping",
	KindPong:             "Pong",
	KindBackgroundStatus: "BackgroundStatus",
	KindUIStatus:         "UIStatus",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// Kinds returns every command variant in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindStartBackground,
		KindStopBackground,
		KindStartUI,
		KindCloseUI,
		KindQuitAll,
		KindPing,
		KindPong,
		KindBackgroundStatus,
		KindUIStatus,
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared variants.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// HasStatus reports whether the variant carries a running flag.
func (k Kind) HasStatus() bool {
	return k == KindBackgroundStatus || k == KindUIStatus
}

// Command is a single control message. Running is meaningful only for
// the status variants and is zero otherwise.
type Command struct {
	Kind    Kind
	Running bool
}

// Predefined commands without payload.
var (
	StartBackground = Command{Kind: KindStartBackground}
	StopBackground  = Command{Kind: KindStopBackground}
	StartUI         = Command{Kind: KindStartUI}
	CloseUI         = Command{Kind: KindCloseUI}
	QuitAll         = Command{Kind: KindQuitAll}
	Ping            = Command{Kind: KindPing}
	Pong            = Command{Kind: KindPong}
)

// BackgroundStatus reports whether the background worker is running.
func BackgroundStatus(running bool) Command {
	return Command{Kind: KindBackgroundStatus, Running: running}
}

// UIStatus reports whether the UI window is up.
func UIStatus(running bool) Command {
	return Command{Kind: KindUIStatus, Running: running}
}

func (c Command) String() string {
	if c.Kind.HasStatus() {
		return fmt.Sprintf("%s(%t)", c.Kind, c.Running)
	}
	return c.Kind.String()
}
