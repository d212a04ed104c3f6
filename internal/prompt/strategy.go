// Package prompt selects the prompt strategy for an attempt and renders the
// prompt text from embedded Twig templates.
package prompt

// Strategy is the prompt-construction policy tied to an attempt index.
type Strategy int

const (
	// Detailed carries the full task description and the schema summary.
	Detailed Strategy = iota
	// Repair embeds the previous failure and asks for a targeted fix.
	Repair
	// Fallback asks for the reference data to be reproduced literally.
	Fallback
)

func (s Strategy) String() string {
	switch s {
	case Detailed:
		return "DETAILED"
	case Repair:
		return "REPAIR"
	case Fallback:
		return "FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// Description is the human-readable progress line for the strategy.
func (s Strategy) Description() string {
	switch s {
	case Detailed:
		return "Initial generation with detailed prompt"
	case Repair:
		return "Focused correction using error feedback"
	case Fallback:
		return "Fallback to hardcoding the correct answer"
	default:
		return "unknown strategy"
	}
}

// template returns the embedded template name for the strategy.
func (s Strategy) template() string {
	switch s {
	case Repair:
		return "repair"
	case Fallback:
		return "fallback"
	default:
		return "detailed"
	}
}

// SelectStrategy maps an attempt index to its strategy. Pure.
func SelectStrategy(attemptIndex int) Strategy {
	switch {
	case attemptIndex <= 0:
		return Detailed
	case attemptIndex == 1:
		return Repair
	default:
		return Fallback
	}
}
