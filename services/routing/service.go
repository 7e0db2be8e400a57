package routing

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/upb/chat-fallback-proxy/services/providers"
	"go.uber.org/zap"
)

var (
	// ErrInvalidOrdering is returned when an ordering is not a permutation of the catalog
	ErrInvalidOrdering = errors.New("invalid model ordering")

	// ErrFallbackMismatch is returned when an ordering does not end with the catalog's last model
	ErrFallbackMismatch = errors.New("orderings must end with the catalog's last-resort model")
)

// Regime is a conversation size bucket
type Regime string

const (
	// RegimeShort prefers fast models
	RegimeShort Regime = "short"

	// RegimeLong prefers high-capability models
	RegimeLong Regime = "long"
)

// DefaultLongThreshold is the character count above which a conversation is long
const DefaultLongThreshold = 4000

// Catalog models, most capable first
const (
	ModelProCurrent   = "gemini-2.5-pro"
	ModelProPrevious  = "gemini-1.5-pro"
	ModelFlashCurrent = "gemini-2.5-flash"
	ModelFlashPrev    = "gemini-1.5-flash"
	ModelLegacy       = "gemini-pro"
)

// DefaultCatalog is the fixed model catalog ranked by capability/cost
var DefaultCatalog = []string{
	ModelProCurrent,
	ModelProPrevious,
	ModelFlashCurrent,
	ModelFlashPrev,
	ModelLegacy,
}

// DefaultStrategies maps each regime to its candidate ordering
var DefaultStrategies = map[Regime][]string{
	RegimeLong:  {ModelProCurrent, ModelProPrevious, ModelFlashCurrent, ModelFlashPrev, ModelLegacy},
	RegimeShort: {ModelFlashCurrent, ModelFlashPrev, ModelProCurrent, ModelProPrevious, ModelLegacy},
}

// PolicyConfig holds overrides for the prioritizer.
// Zero values fall back to the defaults above.
type PolicyConfig struct {
	LongThreshold int
	Catalog       []string
	LongOrder     []string
	ShortOrder    []string
}

// Prioritizer picks the order in which catalog models are tried.
// It is immutable after construction and safe for concurrent use.
type Prioritizer struct {
	threshold  int
	catalog    []string
	strategies map[Regime][]string
	logger     *zap.Logger
}

// NewPrioritizer builds a prioritizer and validates its strategy table
func NewPrioritizer(cfg PolicyConfig, logger *zap.Logger) (*Prioritizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LongThreshold < 0 {
		return nil, fmt.Errorf("long threshold cannot be negative: %d", cfg.LongThreshold)
	}

	threshold := cfg.LongThreshold
	if threshold == 0 {
		threshold = DefaultLongThreshold
	}

	catalog := orDefault(cfg.Catalog, DefaultCatalog)
	strategies := map[Regime][]string{
		RegimeLong:  orDefault(cfg.LongOrder, DefaultStrategies[RegimeLong]),
		RegimeShort: orDefault(cfg.ShortOrder, DefaultStrategies[RegimeShort]),
	}

	for regime, order := range strategies {
		if err := validatePermutation(order, catalog); err != nil {
			return nil, fmt.Errorf("%s ordering: %w", regime, err)
		}
	}
	lastResort := catalog[len(catalog)-1]
	for regime, order := range strategies {
		if order[len(order)-1] != lastResort {
			return nil, fmt.Errorf("%s ordering: %w", regime, ErrFallbackMismatch)
		}
	}

	return &Prioritizer{
		threshold:  threshold,
		catalog:    catalog,
		strategies: strategies,
		logger:     logger,
	}, nil
}

// RegimeFor returns the size bucket for a conversation of totalChars characters
func (p *Prioritizer) RegimeFor(totalChars int) Regime {
	if totalChars > p.threshold {
		return RegimeLong
	}
	return RegimeShort
}

// ChooseOrder returns the candidate ordering for a conversation size.
// The returned slice is a fresh copy owned by the caller.
func (p *Prioritizer) ChooseOrder(totalChars int) []string {
	if totalChars < 0 {
		totalChars = 0
	}
	regime := p.RegimeFor(totalChars)
	order := append([]string(nil), p.strategies[regime]...)

	p.logger.Debug("model order chosen",
		zap.Int("total_chars", totalChars),
		zap.String("regime", string(regime)),
		zap.Strings("order", order))

	return order
}

// Catalog returns a copy of the model catalog
func (p *Prioritizer) Catalog() []string {
	return append([]string(nil), p.catalog...)
}

// Threshold returns the long-conversation threshold in characters
func (p *Prioritizer) Threshold() int {
	return p.threshold
}

// Strategies returns a copy of the strategy table
func (p *Prioritizer) Strategies() map[Regime][]string {
	out := make(map[Regime][]string, len(p.strategies))
	for regime, order := range p.strategies {
		out[regime] = append([]string(nil), order...)
	}
	return out
}

// TotalChars sums the character length of every text part in the conversation
func TotalChars(contents []providers.Content) int {
	total := 0
	for _, c := range contents {
		for _, part := range c.Parts {
			total += utf8.RuneCountInString(part.Text)
		}
	}
	return total
}

func validatePermutation(order, catalog []string) error {
	if len(catalog) == 0 {
		return fmt.Errorf("%w: empty catalog", ErrInvalidOrdering)
	}
	if len(order) != len(catalog) {
		return fmt.Errorf("%w: has %d models, catalog has %d", ErrInvalidOrdering, len(order), len(catalog))
	}

	known := make(map[string]bool, len(catalog))
	for _, m := range catalog {
		known[m] = true
	}
	seen := make(map[string]bool, len(order))
	for _, m := range order {
		if !known[m] {
			return fmt.Errorf("%w: unknown model %q", ErrInvalidOrdering, m)
		}
		if seen[m] {
			return fmt.Errorf("%w: duplicate model %q", ErrInvalidOrdering, m)
		}
		seen[m] = true
	}
	return nil
}

func orDefault(values, def []string) []string {
	if len(values) == 0 {
		values = def
	}
	return append([]string(nil), values...)
}
