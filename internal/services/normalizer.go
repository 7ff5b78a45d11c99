package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spesefx/internal/core"
	"spesefx/internal/log"
	"spesefx/internal/store"
)

type (
	RateResolver interface {
		Resolve(ctx context.Context, currencyCode string) (core.ConversionRate, error)
	}

	// Publisher signals that the stored expenses changed.
	Publisher interface {
		Publish()
	}
)

// Normalizer validates candidates, converts them into the reference currency
// and persists them. For one Save the steps run strictly in order: rate
// lookup, store write, invalidation.
type Normalizer struct {
	validator core.Validator
	resolver  RateResolver
	store     store.Saver
	publisher Publisher
	reference string
	logger    *log.Logger

	now   func() time.Time
	newID func() string
}

func NewNormalizer(resolver RateResolver, saver store.Saver, publisher Publisher, referenceCurrency string, logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Normalizer{
		resolver:  resolver,
		store:     saver,
		publisher: publisher,
		reference: core.NormalizeCurrencyCode(referenceCurrency),
		logger:    logger.WithComponent(log.ComponentExpense),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
}

// Save normalizes and persists a candidate.
//
// Errors are a *core.ValidationError (nothing else happened) or a
// *core.PersistenceError (rate was looked up, nothing was stored, no
// invalidation). An unavailable rate does not fail the save: the amount is
// stored unconverted with ConversionFailed set.
//
// Once called, Save runs to completion even if ctx is cancelled.
func (n *Normalizer) Save(ctx context.Context, candidate core.CandidateExpense) (core.NormalizedExpense, error) {
	ctx = context.WithoutCancel(ctx)

	valid, err := n.validator.Validate(candidate)
	if err != nil {
		n.logger.InfoContext(ctx, "Expense rejected",
			log.NewFields().WithCandidate(candidate).WithError(err).WithOperation(log.OpValidate).ToSlice()...)
		return core.NormalizedExpense{}, err
	}

	rate, failed := n.resolveRate(ctx, valid.CurrencyCode)

	record := n.buildRecord(valid, rate, failed)

	if err := n.store.Save(ctx, record); err != nil {
		n.logger.ErrorContext(ctx, "Failed to save expense",
			log.NewFields().WithRecord(record).WithError(err).WithOperation(log.OpCreate).ToSlice()...)
		return core.NormalizedExpense{}, &core.PersistenceError{Err: err}
	}

	n.logger.InfoContext(ctx, "Expense saved",
		log.NewFields().WithRecord(record).WithOperation(log.OpCreate).ToSlice()...)

	if n.publisher != nil {
		n.publisher.Publish()
	}

	return record, nil
}

// resolveRate applies the fallback policy: when no rate can be resolved the
// rate becomes 1 and failed is set, so the record is never mislabeled.
func (n *Normalizer) resolveRate(ctx context.Context, code string) (rate decimal.Decimal, failed bool) {
	resolved, err := n.resolver.Resolve(ctx, code)
	if err != nil {
		n.logger.WarnContext(ctx, "Conversion rate unavailable, storing unconverted amount",
			log.FieldCurrency, code,
			log.FieldError, err,
			"expected", errors.Is(err, core.ErrRateUnavailable))
		return decimal.NewFromInt(1), true
	}
	return resolved.Rate, false
}

func (n *Normalizer) buildRecord(c core.ValidCandidate, rate decimal.Decimal, failed bool) core.NormalizedExpense {
	display := n.reference
	if failed {
		display = c.CurrencyCode
	}

	// Reference and unconverted amounts are stored exactly as entered.
	amount := c.Amount
	if !failed && c.CurrencyCode != n.reference {
		amount = core.RoundTo(c.Amount.Mul(rate), display)
	}

	return core.NormalizedExpense{
		ID:                    n.newID(),
		Amount:                amount,
		Category:              c.Category,
		Date:                  c.Date,
		DisplayCurrencyCode:   display,
		OriginalCurrencyCode:  c.CurrencyCode,
		OriginalAmount:        c.Amount,
		ConversionRateApplied: rate,
		ConversionFailed:      failed,
		CreatedAt:             n.now(),
	}
}
