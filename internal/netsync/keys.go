package netsync

import (
	"strings"

	"asteroid-arena/internal/game"
	"asteroid-arena/internal/protocol"
)

var keyAliases = map[string]protocol.Key{
	"up":         protocol.KeyUp,
	"arrowup":    protocol.KeyUp,
	"w":          protocol.KeyUp,
	"down":       protocol.KeyDown,
	"arrowdown":  protocol.KeyDown,
	"s":          protocol.KeyDown,
	"left":       protocol.KeyLeft,
	"arrowleft":  protocol.KeyLeft,
	"a":          protocol.KeyLeft,
	"right":      protocol.KeyRight,
	"arrowright": protocol.KeyRight,
	"d":          protocol.KeyRight,
	"spacebar":   protocol.KeySpacebar,
	"space":      protocol.KeySpacebar,
}

// KeyFromName maps a physical key name (arrow keys, WASD, space) to the
// wire direction it drives.
func KeyFromName(name string) (protocol.Key, bool) {
	if name == " " {
		return protocol.KeySpacebar, true
	}
	k, ok := keyAliases[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// keySet tracks which of the five directions are held.
type keySet map[protocol.Key]bool

func (s keySet) controls() game.Controls {
	return game.Controls{
		Up:    s[protocol.KeyUp],
		Down:  s[protocol.KeyDown],
		Left:  s[protocol.KeyLeft],
		Right: s[protocol.KeyRight],
		Boost: s[protocol.KeySpacebar],
	}
}
