// Package budget records estimated LLM spend per provider against a configurable allowance.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/Veraticus/textlens/internal/pricing"
	"github.com/Veraticus/textlens/internal/session"
)

// DefaultBudget is the allowance given to a provider that has no configured budget.
const DefaultBudget = 10.00

// Summary is the spend state of one provider.
type Summary struct {
	Provider model.Provider `json:"provider"`
	Budget   model.Budget   `json:"budget"`
	Calls    int            `json:"calls"`
}

// Tracker appends cost records and keeps budgets in a session store.
type Tracker struct {
	store    session.Store
	logger   *slog.Logger
	defaults map[model.Provider]float64
	locks    map[model.Provider]*sync.Mutex
	mu       sync.Mutex
}

// NewTracker creates a tracker. Providers missing from defaults start with DefaultBudget.
func NewTracker(store session.Store, defaults map[model.Provider]float64, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	d := make(map[model.Provider]float64, len(model.Providers))
	for _, p := range model.Providers {
		d[p] = DefaultBudget
	}
	for p, amount := range defaults {
		d[p] = amount
	}

	return &Tracker{
		store:    store,
		logger:   logger,
		defaults: d,
		locks:    make(map[model.Provider]*sync.Mutex),
	}
}

func (t *Tracker) lock(p model.Provider) func() {
	t.mu.Lock()
	l, ok := t.locks[p]
	if !ok {
		l = &sync.Mutex{}
		t.locks[p] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (t *Tracker) defaultFor(p model.Provider) float64 {
	if amount, ok := t.defaults[p]; ok {
		return amount
	}
	return DefaultBudget
}

// TrackOperation charges one completed call. It returns a nil record and no error when the model
// has no rate, leaving history and budget untouched.
func (t *Tracker) TrackOperation(ctx context.Context, modelID, inputText, outputText string) (*model.CostRecord, error) {
	rec, err := pricing.Estimate(modelID, inputText, outputText)
	if errors.Is(err, common.ErrUnknownModel) {
		t.logger.Debug("No pricing for model, skipping cost tracking", "model", modelID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.ID = uuid.New().String()

	unlock := t.lock(rec.Provider)
	defer unlock()

	history, err := t.history(ctx, rec.Provider)
	if err != nil {
		return nil, err
	}
	current, err := t.budget(ctx, rec.Provider)
	if err != nil {
		return nil, err
	}

	previous := current
	history = append(history, rec)
	current.Remaining = math.Max(0, current.Remaining-rec.EstimatedCost)
	current.TotalSpent += rec.EstimatedCost

	// The budget is charged first; a history write that fails afterwards undoes the charge.
	if err := t.store.Set(ctx, session.BudgetKey(rec.Provider), current); err != nil {
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}
	if err := t.store.Set(ctx, session.CostHistoryKey(rec.Provider), history); err != nil {
		if rbErr := t.store.Set(ctx, session.BudgetKey(rec.Provider), previous); rbErr != nil {
			t.logger.Error("Failed to restore budget after history write failed",
				"provider", rec.Provider, "error", rbErr)
		}
		return nil, fmt.Errorf("failed to save cost history: %w", err)
	}

	t.logger.Info("Tracked LLM cost",
		"provider", rec.Provider,
		"model", rec.Model,
		"cost", rec.EstimatedCost,
		"remaining", current.Remaining)

	return &rec, nil
}

// SetBudget replaces the remaining allowance of a provider. Total spend is kept.
func (t *Tracker) SetBudget(ctx context.Context, p model.Provider, amount float64) (model.Budget, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return model.Budget{}, fmt.Errorf("budget must be a non-negative amount, got %v", amount)
	}

	unlock := t.lock(p)
	defer unlock()

	current, err := t.budget(ctx, p)
	if err != nil {
		return model.Budget{}, err
	}
	current.Remaining = amount

	if err := t.store.Set(ctx, session.BudgetKey(p), current); err != nil {
		return model.Budget{}, fmt.Errorf("failed to save budget: %w", err)
	}
	return current, nil
}

// Budget returns the budget of a provider.
func (t *Tracker) Budget(ctx context.Context, p model.Provider) (model.Budget, error) {
	unlock := t.lock(p)
	defer unlock()
	return t.budget(ctx, p)
}

// History returns the cost records of a provider, oldest first.
func (t *Tracker) History(ctx context.Context, p model.Provider) ([]model.CostRecord, error) {
	unlock := t.lock(p)
	defer unlock()
	return t.history(ctx, p)
}

// Summaries returns the spend state of every provider.
func (t *Tracker) Summaries(ctx context.Context) ([]Summary, error) {
	out := make([]Summary, 0, len(model.Providers))
	for _, p := range model.Providers {
		b, err := t.Budget(ctx, p)
		if err != nil {
			return nil, err
		}
		h, err := t.History(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{Provider: p, Budget: b, Calls: len(h)})
	}
	return out, nil
}

// ResetTracking clears the history of one provider and restores its default budget.
func (t *Tracker) ResetTracking(ctx context.Context, p model.Provider) error {
	unlock := t.lock(p)
	defer unlock()

	if err := t.store.Delete(ctx, session.CostHistoryKey(p)); err != nil {
		return fmt.Errorf("failed to clear cost history: %w", err)
	}
	if err := t.store.Set(ctx, session.BudgetKey(p), model.Budget{Remaining: t.defaultFor(p)}); err != nil {
		return fmt.Errorf("failed to reset budget: %w", err)
	}

	t.logger.Info("Reset cost tracking", "provider", p)
	return nil
}

// ResetAll resets every provider.
func (t *Tracker) ResetAll(ctx context.Context) error {
	for _, p := range model.Providers {
		if err := t.ResetTracking(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) budget(ctx context.Context, p model.Provider) (model.Budget, error) {
	b, ok, err := session.Load[model.Budget](ctx, t.store, session.BudgetKey(p))
	if err != nil {
		return model.Budget{}, fmt.Errorf("failed to load budget: %w", err)
	}
	if !ok {
		return model.Budget{Remaining: t.defaultFor(p)}, nil
	}
	return b, nil
}

func (t *Tracker) history(ctx context.Context, p model.Provider) ([]model.CostRecord, error) {
	h, _, err := session.Load[[]model.CostRecord](ctx, t.store, session.CostHistoryKey(p))
	if err != nil {
		return nil, fmt.Errorf("failed to load cost history: %w", err)
	}
	return h, nil
}
