package rates

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"spesefx/internal/core"
)

// StaticProvider serves rates from a fixed table keyed by source currency.
// All rates are into the single target currency the table was built for.
type StaticProvider struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

func NewStaticProvider(rates map[string]decimal.Decimal) *StaticProvider {
	p := &StaticProvider{rates: make(map[string]decimal.Decimal, len(rates))}
	for code, rate := range rates {
		p.rates[core.NormalizeCurrencyCode(code)] = rate
	}
	return p
}

// ParseStatic builds a StaticProvider from "EUR=1.10,GBP=1.27".
func ParseStatic(table string) (*StaticProvider, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(table, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid rate %q: want CODE=RATE", pair)
		}
		code = core.NormalizeCurrencyCode(code)
		if !core.IsCurrencyCode(code) {
			return nil, fmt.Errorf("invalid currency code %q", code)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate for %s: %q", code, value)
		}
		rates[code] = rate
	}
	return NewStaticProvider(rates), nil
}

func (p *StaticProvider) Lookup(_ context.Context, from, _ string) (*decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rate, ok := p.rates[core.NormalizeCurrencyCode(from)]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

// Set replaces the rate for a currency.
func (p *StaticProvider) Set(code string, rate decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates[core.NormalizeCurrencyCode(code)] = rate
}
