// Package session drives a worktime.Engine over one content tree in response
// to external triggers: the initial load, newly inserted subtrees, settings
// changes and the enable switch.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mkapulica/Time-is-Money/pkg/worktime"
)

// ErrNoWage is returned by operations that would substitute before a valid
// wage has been resolved.
var ErrNoWage = errors.New("wage not resolved")

// SettingsSource supplies the user's wage settings. Implementations may block,
// for example on storage or a remote service.
type SettingsSource interface {
	LoadSettings(ctx context.Context) (*worktime.Settings, error)
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func(ctx context.Context) (*worktime.Settings, error)

// LoadSettings calls f.
func (f SettingsFunc) LoadSettings(ctx context.Context) (*worktime.Settings, error) {
	return f(ctx)
}

// StaticSettings is a SettingsSource that always returns the same record. A
// nil pointer yields worktime.ErrNoSettings from ComputeWage.
func StaticSettings(s *worktime.Settings) SettingsSource {
	return SettingsFunc(func(context.Context) (*worktime.Settings, error) {
		return s, nil
	})
}

// WageSource resolves the hourly wage used for a pass.
type WageSource interface {
	Wage(ctx context.Context) (worktime.Wage, error)
}

// FromSettings computes the wage from a SettingsSource.
type FromSettings struct {
	Source SettingsSource
}

// Wage loads the settings and derives the wage from them.
func (f FromSettings) Wage(ctx context.Context) (worktime.Wage, error) {
	s, err := f.Source.LoadSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading settings: %w", err)
	}
	return worktime.ComputeWage(s)
}

// FixedWage is a WageSource for an explicitly configured wage.
type FixedWage worktime.Wage

// Wage returns w, or worktime.ErrInvalidWage when w cannot be divided by.
func (w FixedWage) Wage(context.Context) (worktime.Wage, error) {
	if !worktime.Wage(w).Valid() {
		return 0, fmt.Errorf("%w: %v", worktime.ErrInvalidWage, float64(w))
	}
	return worktime.Wage(w), nil
}

// Options configures a Session.
type Options struct {
	// Disabled starts the session with substitution switched off.
	Disabled bool
	// Logger receives session events. Nil disables logging.
	Logger slog.Handler
}

// Session owns the wage and enabled state for one tree. Its methods serialize
// passes, so triggers may arrive from several goroutines.
type Session struct {
	mu      sync.Mutex
	engine  *worktime.Engine
	source  WageSource
	root    *worktime.Node
	wage    worktime.Wage
	enabled bool
	logger  *slog.Logger
}

// New returns a session for root. Nothing is substituted until Load succeeds.
func New(root *worktime.Node, engine *worktime.Engine, source WageSource, opts Options) *Session {
	h := opts.Logger
	if h == nil {
		h = slog.NewTextHandler(io.Discard, nil)
	}
	return &Session{
		engine:  engine,
		source:  source,
		root:    root,
		enabled: !opts.Disabled,
		logger:  slog.New(h).With(slog.String("component", "session")),
	}
}

// Wage returns the wage resolved by the last successful Load or
// SettingsChanged, zero before that.
func (s *Session) Wage() worktime.Wage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wage
}

// Enabled reports whether substitution is switched on.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Load resolves the wage and, when enabled, applies it to the whole tree.
func (s *Session) Load(ctx context.Context) (worktime.Stats, error) {
	return s.refresh(ctx, "load")
}

// SettingsChanged resolves the wage again and re-applies it. Nodes rewritten
// under the previous wage are rewritten from their original text. When the
// new settings are unusable the tree keeps its current state.
func (s *Session) SettingsChanged(ctx context.Context) (worktime.Stats, error) {
	return s.refresh(ctx, "settings changed")
}

func (s *Session) refresh(ctx context.Context, trigger string) (worktime.Stats, error) {
	wage, err := s.source.Wage(ctx)
	if err != nil {
		s.logger.Warn("Wage could not be resolved", slog.String("trigger", trigger), slog.String("error", err.Error()))
		return worktime.Stats{}, err
	}
	if !wage.Valid() {
		return worktime.Stats{}, fmt.Errorf("%w: %v", worktime.ErrInvalidWage, float64(wage))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wage = wage
	s.logger.Debug("Wage resolved", slog.String("trigger", trigger), slog.String("wage", wage.String()))
	if !s.enabled {
		return worktime.Stats{}, nil
	}
	return s.engine.Apply(s.root, wage)
}

// Inserted applies the current wage to newly inserted subtrees. It is a no-op
// while disabled and fails with ErrNoWage before the first successful Load.
func (s *Session) Inserted(nodes ...*worktime.Node) (worktime.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total worktime.Stats
	if !s.enabled {
		return total, nil
	}
	if !s.wage.Valid() {
		return total, ErrNoWage
	}
	for _, n := range nodes {
		st, err := s.engine.Apply(n, s.wage)
		if err != nil {
			return total, err
		}
		total = total.Add(st)
	}
	s.logger.Debug("Inserted subtrees processed", slog.Int("subtrees", len(nodes)), slog.Int("matches", total.Matches))
	return total, nil
}

// SetEnabled switches substitution on or off. Switching off reverts the tree;
// switching on re-applies the current wage if one has been resolved.
func (s *Session) SetEnabled(enabled bool) (worktime.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled == enabled {
		return worktime.Stats{}, nil
	}
	s.enabled = enabled
	s.logger.Debug("Substitution switched", slog.Bool("enabled", enabled))
	if !enabled {
		return s.engine.Revert(s.root), nil
	}
	if !s.wage.Valid() {
		return worktime.Stats{}, nil
	}
	return s.engine.Apply(s.root, s.wage)
}
