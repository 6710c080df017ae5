package parser

import "hfparse/internal/grammar"

// Context supplies contextual evidence to the scorer. A nil Context scores
// on literal evidence alone.
type Context interface {
	// Default returns the option an unresolved parameter falls back to.
	Default(param *grammar.Parameter) (string, bool)
	// Prior is the added cost of a parse given the current robot state.
	Prior(p *CommandParse) float64
	// ObjectsVisible reports whether any world object can be referred to.
	ObjectsVisible() bool
}
