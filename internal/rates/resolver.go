// Package rates resolves conversion rates into the reference currency.
package rates

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"spesefx/internal/core"
	"spesefx/internal/log"
)

// Provider looks up how many units of `to` one unit of `from` buys.
// A nil rate with a nil error means the provider has no rate for the pair.
type Provider interface {
	Lookup(ctx context.Context, from, to string) (*decimal.Decimal, error)
}

// Resolver turns currency codes into conversion rates. It never invents a
// rate: anything short of a positive value from the provider is an error
// matching core.ErrRateUnavailable.
type Resolver struct {
	provider  Provider
	reference string
	logger    *log.Logger
}

func NewResolver(provider Provider, referenceCurrency string, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Discard()
	}
	return &Resolver{
		provider:  provider,
		reference: core.NormalizeCurrencyCode(referenceCurrency),
		logger:    logger.WithComponent(log.ComponentRates),
	}
}

// Reference returns the reference currency code.
func (r *Resolver) Reference() string {
	return r.reference
}

func (r *Resolver) Resolve(ctx context.Context, currencyCode string) (core.ConversionRate, error) {
	code := core.NormalizeCurrencyCode(currencyCode)
	if code == r.reference {
		return core.ConversionRate{CurrencyCode: code, Rate: decimal.NewFromInt(1)}, nil
	}
	if r.provider == nil {
		return core.ConversionRate{}, &core.RateError{CurrencyCode: code, Err: errors.New("no rate provider configured")}
	}

	rate, err := r.provider.Lookup(ctx, code, r.reference)
	switch {
	case err != nil:
		r.logger.WarnContext(ctx, "Rate lookup failed",
			log.FieldCurrency, code, log.FieldError, err)
		return core.ConversionRate{}, &core.RateError{CurrencyCode: code, Err: err}
	case rate == nil:
		r.logger.WarnContext(ctx, "Rate provider has no rate", log.FieldCurrency, code)
		return core.ConversionRate{}, &core.RateError{CurrencyCode: code}
	case !rate.IsPositive():
		r.logger.WarnContext(ctx, "Rate provider returned non-positive rate",
			log.FieldCurrency, code, log.FieldRate, rate.String())
		return core.ConversionRate{}, &core.RateError{CurrencyCode: code, Err: errors.New("non-positive rate " + rate.String())}
	}

	r.logger.DebugContext(ctx, "Rate resolved", log.FieldCurrency, code, log.FieldRate, rate.String())
	return core.ConversionRate{CurrencyCode: code, Rate: *rate}, nil
}
