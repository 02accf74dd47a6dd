package metrics

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/aist/internal/logger"
)

// ModelPricing contains pricing per million tokens.
type ModelPricing struct {
	Input      decimal.Decimal // Per million input tokens
	Output     decimal.Decimal // Per million output tokens
	CacheWrite decimal.Decimal // Per million cache creation tokens (1.25x input)
	CacheRead  decimal.Decimal // Per million cache read tokens (0.1x input)
}

// tier derives cache prices from the input price.
func tier(input, output float64) ModelPricing {
	in := decimal.NewFromFloat(input)
	return ModelPricing{
		Input:      in,
		Output:     decimal.NewFromFloat(output),
		CacheWrite: in.Mul(decimal.NewFromFloat(1.25)),
		CacheRead:  in.Mul(decimal.NewFromFloat(0.1)),
	}
}

var (
	opusCurrent = tier(5, 25)
	opusLegacy  = tier(15, 75)
	sonnet      = tier(3, 15)
	haiku45     = tier(1, 5)
	haiku35     = tier(0.80, 4)
	haiku3      = tier(0.25, 1.25)
)

// familyPricing maps model families to their tier.
var familyPricing = map[string]ModelPricing{
	"opus-4-6":   opusCurrent,
	"opus-4-5":   opusCurrent,
	"opus-4-1":   opusLegacy,
	"opus-4":     opusLegacy,
	"opus-3":     opusLegacy,
	"sonnet-4-5": sonnet,
	"sonnet-4":   sonnet,
	"sonnet-3-7": sonnet,
	"sonnet-3-5": sonnet,
	"haiku-4-5":  haiku45,
	"haiku-3-5":  haiku35,
	"haiku-3":    haiku3,
}

// modelFamily extracts the family from a full model name.
// e.g., "claude-opus-4-5-20251101" -> "opus-4-5"
// e.g., "claude-3-5-sonnet-20241022" -> "sonnet-3-5"
func modelFamily(modelName string) string {
	name := strings.TrimPrefix(modelName, "claude-")
	parts := strings.Split(name, "-")

	// Older names put the version first: 3-5-sonnet-20241022
	if len(parts) >= 2 && isDigit(parts[0]) {
		for i, p := range parts {
			if isFamily(p) {
				return p + "-" + strings.Join(parts[:i], "-")
			}
		}
		return name
	}

	if len(parts) < 2 || !isFamily(parts[0]) || !isDigit(parts[1]) {
		return name
	}
	// Minor version is a single digit; date suffixes are 8 characters
	if len(parts) >= 3 && isDigit(parts[2]) {
		return parts[0] + "-" + parts[1] + "-" + parts[2]
	}
	return parts[0] + "-" + parts[1]
}

func isFamily(s string) bool {
	return s == "opus" || s == "sonnet" || s == "haiku"
}

func isDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

var warnedModels sync.Map

// PricingFor returns pricing for a model. Unknown models cost nothing and
// are logged once.
func PricingFor(modelName string) ModelPricing {
	family := modelFamily(modelName)
	if pricing, ok := familyPricing[family]; ok {
		return pricing
	}
	if _, seen := warnedModels.LoadOrStore(modelName, true); !seen {
		logger.Warn("unknown model for pricing", "model", modelName, "family", family)
	}
	return ModelPricing{}
}

var oneMillion = decimal.NewFromInt(1_000_000)

// Cost prices token counts.
func (p ModelPricing) Cost(t Tokens) decimal.Decimal {
	return decimal.NewFromInt(t.Input).Mul(p.Input).
		Add(decimal.NewFromInt(t.Output).Mul(p.Output)).
		Add(decimal.NewFromInt(t.CacheCreation).Mul(p.CacheWrite)).
		Add(decimal.NewFromInt(t.CacheRead).Mul(p.CacheRead)).
		Div(oneMillion)
}
