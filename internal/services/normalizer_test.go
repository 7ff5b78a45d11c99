package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spesefx/internal/bus"
	"spesefx/internal/core"
	"spesefx/internal/rates"
	"spesefx/internal/store/memory"
)

// step records the order in which collaborators were called.
type step struct {
	mu    sync.Mutex
	steps []string
}

func (s *step) add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, name)
}

type fakeResolver struct {
	log   *step
	rates map[string]string
	err   error
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, code string) (core.ConversionRate, error) {
	f.calls++
	f.log.add("resolve")
	if f.err != nil {
		return core.ConversionRate{}, f.err
	}
	if code == "USD" {
		return core.ConversionRate{CurrencyCode: code, Rate: decimal.NewFromInt(1)}, nil
	}
	r, ok := f.rates[code]
	if !ok {
		return core.ConversionRate{}, &core.RateError{CurrencyCode: code}
	}
	return core.ConversionRate{CurrencyCode: code, Rate: decimal.RequireFromString(r)}, nil
}

type fakeStore struct {
	log   *step
	err   error
	saved []core.NormalizedExpense
}

func (f *fakeStore) Save(_ context.Context, e core.NormalizedExpense) error {
	f.log.add("save")
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, e)
	return nil
}

type fakePublisher struct {
	log   *step
	calls int
}

func (f *fakePublisher) Publish() {
	f.log.add("publish")
	f.calls++
}

type harness struct {
	steps     *step
	resolver  *fakeResolver
	store     *fakeStore
	publisher *fakePublisher
	n         *Normalizer
}

func newHarness() *harness {
	s := &step{}
	h := &harness{
		steps:     s,
		resolver:  &fakeResolver{log: s, rates: map[string]string{"EUR": "1.10", "JPY": "0.0067"}},
		store:     &fakeStore{log: s},
		publisher: &fakePublisher{log: s},
	}
	h.n = NewNormalizer(h.resolver, h.store, h.publisher, "USD", nil)
	h.n.now = func() time.Time { return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC) }
	h.n.newID = func() string { return "exp-1" }
	return h
}

func candidate(amount, currency string) core.CandidateExpense {
	return core.CandidateExpense{
		Amount:       decimal.RequireFromString(amount),
		Category:     core.Food,
		Date:         core.NewDate(2024, 1, 5),
		CurrencyCode: currency,
	}
}

func TestNormalizer_ConvertsForeignCurrency(t *testing.T) {
	h := newHarness()

	rec, err := h.n.Save(context.Background(), candidate("100", "EUR"))

	require.NoError(t, err)
	assert.Equal(t, "110.00", rec.Amount.StringFixed(2))
	assert.Equal(t, "USD", rec.DisplayCurrencyCode)
	assert.Equal(t, "EUR", rec.OriginalCurrencyCode)
	assert.Equal(t, "100", rec.OriginalAmount.String())
	assert.Equal(t, "1.1", rec.ConversionRateApplied.String())
	assert.False(t, rec.ConversionFailed)
	assert.Equal(t, "exp-1", rec.ID)
	assert.Equal(t, core.Food, rec.Category)
	assert.Equal(t, "2024-01-05", rec.Date.String())

	assert.Equal(t, []string{"resolve", "save", "publish"}, h.steps.steps)
	require.Len(t, h.store.saved, 1)
	assert.Equal(t, rec, h.store.saved[0])
}

func TestNormalizer_ReferenceCurrencyKeepsAmount(t *testing.T) {
	for _, amount := range []string{"0.01", "12.34", "100", "99999.99"} {
		h := newHarness()

		rec, err := h.n.Save(context.Background(), candidate(amount, "usd"))

		require.NoError(t, err)
		assert.True(t, rec.Amount.Equal(decimal.RequireFromString(amount)), amount)
		assert.Equal(t, "USD", rec.DisplayCurrencyCode)
		assert.Equal(t, "USD", rec.OriginalCurrencyCode)
		assert.False(t, rec.ConversionFailed)
	}
}

func TestNormalizer_ReferenceAmountIsStoredExactly(t *testing.T) {
	tests := []struct {
		reference string
		amount    string
	}{
		{"USD", "12.345"},
		{"USD", "0.0001"},
		{"USD", "1234567.891011"},
		{"JPY", "1500.5"},
		{"KWD", "3.14159"},
	}

	for _, tt := range tests {
		t.Run(tt.reference+" "+tt.amount, func(t *testing.T) {
			h := newHarness()
			h.n = NewNormalizer(h.resolver, h.store, h.publisher, tt.reference, nil)
			h.resolver.rates[tt.reference] = "1"

			rec, err := h.n.Save(context.Background(), candidate(tt.amount, tt.reference))

			require.NoError(t, err)
			want := decimal.RequireFromString(tt.amount)
			assert.True(t, rec.Amount.Equal(want), "got %s want %s", rec.Amount, want)
			assert.True(t, rec.OriginalAmount.Equal(want))
			assert.Equal(t, tt.reference, rec.DisplayCurrencyCode)
			assert.False(t, rec.ConversionFailed)
		})
	}
}

func TestNormalizer_UnconvertedAmountIsStoredExactly(t *testing.T) {
	for _, tc := range []struct{ amount, currency string }{
		{"250.125", "TRY"},
		{"0.999", "JPY"},
		{"10.12345", "KWD"},
	} {
		h := newHarness()
		delete(h.resolver.rates, tc.currency)

		rec, err := h.n.Save(context.Background(), candidate(tc.amount, tc.currency))

		require.NoError(t, err)
		want := decimal.RequireFromString(tc.amount)
		assert.True(t, rec.ConversionFailed, tc.currency)
		assert.True(t, rec.Amount.Equal(want), "%s: got %s want %s", tc.currency, rec.Amount, want)
		assert.Equal(t, tc.currency, rec.DisplayCurrencyCode)
	}
}

func TestNormalizer_AmountIsProductRoundedToReferencePrecision(t *testing.T) {
	h := newHarness()
	h.resolver.rates["GBP"] = "1.2719"

	rec, err := h.n.Save(context.Background(), candidate("33.33", "GBP"))

	require.NoError(t, err)
	want := decimal.RequireFromString("33.33").Mul(decimal.RequireFromString("1.2719")).Round(2)
	assert.True(t, rec.Amount.Equal(want), "got %s want %s", rec.Amount, want)
}

func TestNormalizer_RateUnavailableFallsBack(t *testing.T) {
	h := newHarness()

	rec, err := h.n.Save(context.Background(), candidate("250", "TRY"))

	require.NoError(t, err)
	assert.True(t, rec.ConversionFailed)
	assert.Equal(t, "250", rec.Amount.String())
	assert.Equal(t, "1", rec.ConversionRateApplied.String())
	assert.Equal(t, "TRY", rec.DisplayCurrencyCode, "unconverted amount must not be labeled USD")
	assert.Equal(t, "TRY", rec.OriginalCurrencyCode)
	assert.Equal(t, []string{"resolve", "save", "publish"}, h.steps.steps)
}

func TestNormalizer_UnexpectedResolverErrorFallsBack(t *testing.T) {
	h := newHarness()
	h.resolver.err = errors.New("resolver exploded")

	rec, err := h.n.Save(context.Background(), candidate("10", "EUR"))

	require.NoError(t, err)
	assert.True(t, rec.ConversionFailed)
	assert.Equal(t, 1, h.publisher.calls)
}

func TestNormalizer_ValidationErrorHasNoSideEffects(t *testing.T) {
	h := newHarness()

	_, err := h.n.Save(context.Background(), candidate("100", ""))

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, core.MissingCurrency, verr.Kind)
	assert.Equal(t, 0, h.resolver.calls)
	assert.Empty(t, h.store.saved)
	assert.Equal(t, 0, h.publisher.calls)
	assert.Empty(t, h.steps.steps)
}

func TestNormalizer_PersistenceErrorDoesNotPublish(t *testing.T) {
	h := newHarness()
	cause := errors.New("database is locked")
	h.store.err = cause

	_, err := h.n.Save(context.Background(), candidate("100", "EUR"))

	assert.ErrorIs(t, err, core.ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, h.publisher.calls)
	assert.Equal(t, []string{"resolve", "save"}, h.steps.steps)
}

func TestNormalizer_RoundsToDisplayCurrencyMinorUnits(t *testing.T) {
	h := newHarness()
	h.n = NewNormalizer(h.resolver, h.store, h.publisher, "JPY", nil)
	h.resolver.rates["EUR"] = "161.237"

	rec, err := h.n.Save(context.Background(), candidate("10.5", "EUR"))

	require.NoError(t, err)
	assert.Equal(t, "JPY", rec.DisplayCurrencyCode)
	assert.Equal(t, "1693", rec.Amount.String())
}

func TestNormalizer_RunsToCompletionAfterCancel(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.n.Save(ctx, candidate("100", "EUR"))

	require.NoError(t, err)
	assert.Equal(t, 1, h.publisher.calls)
}

func TestNormalizer_Pipeline(t *testing.T) {
	provider, err := rates.ParseStatic("EUR=1.10")
	require.NoError(t, err)
	b := bus.New(nil)
	signals := 0
	b.Subscribe(func() { signals++ })
	st := memory.New()
	n := NewNormalizer(rates.NewResolver(provider, "USD", nil), st, b, "USD", nil)

	rec, err := n.Save(context.Background(), candidate("100", "EUR"))
	require.NoError(t, err)
	assert.Equal(t, "110", rec.Amount.String())

	_, err = n.Save(context.Background(), candidate("5", "TRY"))
	require.NoError(t, err)

	_, err = n.Save(context.Background(), candidate("5", " "))
	require.Error(t, err)

	all, err := st.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].ConversionFailed)
	assert.True(t, all[1].ConversionFailed)
	assert.Equal(t, 2, signals)
}
