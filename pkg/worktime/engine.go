package worktime

import (
	"fmt"
	"io"
	"log/slog"
)

// Config holds the immutable settings of an Engine.
type Config struct {
	// Strategy selects the tree traversal. Empty means StrategyIterative.
	Strategy Strategy
	// StripSpaces removes whitespace inside a matched amount before parsing,
	// so that "1 000" reads as one thousand rather than one.
	StripSpaces bool
	// HoursLabel is appended to every converted amount. Empty means "h".
	HoursLabel string
	// Rates is the conversion table. Nil means DefaultRates.
	Rates ConversionTable
	// Logger receives debug records for every pass. Nil disables logging.
	Logger slog.Handler
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Strategy:    StrategyIterative,
		StripSpaces: true,
		HoursLabel:  DefaultHoursLabel,
	}
}

// Stats counts what one Apply or Revert pass did.
type Stats struct {
	Visited int `json:"visited" yaml:"visited"` // text nodes reached
	Changed int `json:"changed" yaml:"changed"` // text nodes whose Content changed
	Matches int `json:"matches" yaml:"matches"` // prices rewritten
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Visited: s.Visited + o.Visited,
		Changed: s.Changed + o.Changed,
		Matches: s.Matches + o.Matches,
	}
}

// Engine rewrites prices in text trees as work hours. An Engine holds no
// mutable state, so one instance may serve many goroutines as long as they
// work on disjoint trees.
type Engine struct {
	matcher     *Matcher
	rates       ConversionTable
	strategy    Strategy
	stripSpaces bool
	label       string
	logger      *slog.Logger
}

// New returns an Engine for cfg.
func New(cfg Config) *Engine {
	h := cfg.Logger
	if h == nil {
		h = slog.NewTextHandler(io.Discard, nil)
	}
	rates := cfg.Rates
	if rates == nil {
		rates = DefaultRates()
	} else {
		rates = rates.Clone()
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyIterative
	}
	label := cfg.HoursLabel
	if label == "" {
		label = DefaultHoursLabel
	}
	return &Engine{
		matcher:     NewMatcher(),
		rates:       rates,
		strategy:    strategy,
		stripSpaces: cfg.StripSpaces,
		label:       label,
		logger:      slog.New(h).With(slog.String("component", "worktime")),
	}
}

// Strategy returns the traversal strategy the engine walks trees with.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Matcher returns the price matcher used by the engine.
func (e *Engine) Matcher() *Matcher { return e.matcher }

// ReplacePrices returns text with every price rewritten as work hours at the
// given wage, and the number of prices rewritten. wage must be valid.
func (e *Engine) ReplacePrices(text string, wage Wage) (string, int) {
	return e.matcher.ReplaceAll(text, func(m Match) string {
		money := ParseMoney(m.Text, e.stripSpaces)
		return ToHours(e.rates.Convert(money.Amount, money.Symbol), wage, e.label)
	})
}

// Substitute rewrites the prices of one text node, always starting from the
// authored text, and reports whether Content changed. Container nodes are left
// alone. wage must be valid.
func (e *Engine) Substitute(n *Node, wage Wage) bool {
	changed, _ := e.substitute(n, wage)
	return changed
}

func (e *Engine) substitute(n *Node, wage Wage) (bool, int) {
	if !n.IsText() {
		return false, 0
	}
	base := n.Text()
	replaced, count := e.ReplacePrices(base, wage)
	if count == 0 || replaced == base {
		return false, count
	}
	if n.Original == nil {
		n.Original = &base
	}
	if n.Content == replaced {
		return false, count
	}
	n.Content = replaced
	return true, count
}

// Apply rewrites every eligible text node under root. It returns
// ErrInvalidWage without touching the tree when wage cannot be divided by.
func (e *Engine) Apply(root *Node, wage Wage) (Stats, error) {
	var st Stats
	if root == nil {
		return st, ErrNilRoot
	}
	if !wage.Valid() {
		return st, fmt.Errorf("%w: %v", ErrInvalidWage, float64(wage))
	}
	Walk(root, e.strategy, func(n *Node) {
		st.Visited++
		changed, count := e.substitute(n, wage)
		st.Matches += count
		if changed {
			st.Changed++
		}
	})
	e.logger.Debug("Applied work time substitution",
		slog.String("strategy", string(e.strategy)),
		slog.Int("visited", st.Visited),
		slog.Int("changed", st.Changed),
		slog.Int("matches", st.Matches))
	return st, nil
}

// Revert restores the authored text of every substituted node under root and
// forgets it. Nodes that were never substituted are left alone.
func (e *Engine) Revert(root *Node) Stats {
	var st Stats
	Walk(root, e.strategy, func(n *Node) {
		st.Visited++
		if n.Original == nil {
			return
		}
		n.Content = *n.Original
		n.Original = nil
		st.Changed++
	})
	e.logger.Debug("Reverted work time substitution",
		slog.Int("visited", st.Visited),
		slog.Int("restored", st.Changed))
	return st
}
