package models

import (
	"strings"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Position is the direction of a holding
type Position int

const (
	// PositionUnknown is the zero value and is never valid
	PositionUnknown Position = iota
	PositionLong
	PositionShort
)

// Sign returns +1 for long and -1 for short positions
func (p Position) Sign() (float64, error) {
	switch p {
	case PositionLong:
		return 1, nil
	case PositionShort:
		return -1, nil
	default:
		return 0, errors.InvalidPosition("position %q is neither long nor short", p.String())
	}
}

func (p Position) String() string {
	switch p {
	case PositionLong:
		return "long"
	case PositionShort:
		return "short"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePosition parses "long" or "short", ignoring case
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return PositionLong, nil
	case "short":
		return PositionShort, nil
	default:
		return PositionUnknown, errors.InvalidPosition("position %q is neither long nor short", s)
	}
}

// OptionKind is the right conveyed by an option
type OptionKind int

const (
	// OptionKindUnknown is the zero value and is never valid
	OptionKindUnknown OptionKind = iota
	OptionKindCall
	OptionKindPut
)

func (k OptionKind) String() string {
	switch k {
	case OptionKindCall:
		return "call"
	case OptionKindPut:
		return "put"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k OptionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *OptionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseOptionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseOptionKind parses "call" or "put", ignoring case
func ParseOptionKind(s string) (OptionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call":
		return OptionKindCall, nil
	case "put":
		return OptionKindPut, nil
	default:
		return OptionKindUnknown, errors.InvalidOptionKind("option kind %q is neither call nor put", s)
	}
}

// BarrierType selects the knock-in/knock-out behaviour of a barrier option.
// The up variants parse so callers get a precise error; no pricer supports them.
type BarrierType int

const (
	BarrierTypeUnknown BarrierType = iota
	BarrierDownAndIn
	BarrierDownAndOut
	BarrierUpAndIn
	BarrierUpAndOut
)

var barrierTypeNames = map[BarrierType]string{
	BarrierDownAndIn:  "down-and-in",
	BarrierDownAndOut: "down-and-out",
	BarrierUpAndIn:    "up-and-in",
	BarrierUpAndOut:   "up-and-out",
}

func (b BarrierType) String() string {
	if name, ok := barrierTypeNames[b]; ok {
		return name
	}
	return "unknown"
}

// Supported reports whether closed-form and simulation pricing exist for b
func (b BarrierType) Supported() bool {
	return b == BarrierDownAndIn || b == BarrierDownAndOut
}

// MarshalText implements encoding.TextMarshaler
func (b BarrierType) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (b *BarrierType) UnmarshalText(text []byte) error {
	parsed, err := ParseBarrierType(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBarrierType parses names such as "down-and-in"; underscores are accepted
func ParseBarrierType(s string) (BarrierType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for b, name := range barrierTypeNames {
		if name == normalized {
			return b, nil
		}
	}
	return BarrierTypeUnknown, errors.InvalidBarrierType("unknown barrier type %q", s)
}

// Style discriminates the contract variants
type Style int

const (
	StyleVanilla Style = iota + 1
	StyleBarrier
)

func (s Style) String() string {
	switch s {
	case StyleVanilla:
		return "vanilla"
	case StyleBarrier:
		return "barrier"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty style means vanilla.
func (s *Style) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "vanilla":
		*s = StyleVanilla
	case "barrier":
		*s = StyleBarrier
	default:
		return errors.InvalidArgument("unknown contract style %q", string(text))
	}
	return nil
}

// PricingMethod records how a valuation was produced
type PricingMethod string

const (
	MethodClosedForm PricingMethod = "closed_form"
	MethodMonteCarlo PricingMethod = "monte_carlo"
)

// ParsePricingMethod parses a pricing method name; empty means closed form
func ParsePricingMethod(s string) (PricingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "closed_form", "closed-form", "bs":
		return MethodClosedForm, nil
	case "monte_carlo", "monte-carlo", "mc":
		return MethodMonteCarlo, nil
	default:
		return "", errors.InvalidArgument("unknown pricing method %q", s)
	}
}

// VaRMethod selects how simulated spots are turned into option values
type VaRMethod string

const (
	// VaRMethodRepricing substitutes the simulated spot into the closed form
	// while keeping d1 and d2 at their initial values.
	VaRMethodRepricing VaRMethod = "repricing"
	// VaRMethodFullRevaluation reprices the contract at the simulated spot
	// over the remaining maturity.
	VaRMethodFullRevaluation VaRMethod = "full_revaluation"
)

// ParseVaRMethod parses a VaR method name; empty means repricing
func ParseVaRMethod(s string) (VaRMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "repricing":
		return VaRMethodRepricing, nil
	case "full_revaluation", "full-revaluation", "full":
		return VaRMethodFullRevaluation, nil
	default:
		return "", errors.InvalidArgument("unknown VaR method %q", s)
	}
}
