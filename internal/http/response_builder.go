package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"spesefx/internal/cache"
	"spesefx/internal/core"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// ValidationErrorResponse creates a 422 response describing what to correct.
func ValidationErrorResponse(err error) *JSONResponseBuilder {
	body := errorBody{Error: err.Error()}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Kind = string(ve.Kind)
		body.Field = string(ve.Field)
	}
	return NewJSONResponse().Status(http.StatusUnprocessableEntity).Body(body)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

type expenseJSON struct {
	ID                    string    `json:"id"`
	Amount                string    `json:"amount"`
	Category              string    `json:"category"`
	Date                  string    `json:"date"`
	DisplayCurrencyCode   string    `json:"displayCurrencyCode"`
	OriginalCurrencyCode  string    `json:"originalCurrencyCode"`
	OriginalAmount        string    `json:"originalAmount"`
	ConversionRateApplied string    `json:"conversionRateApplied"`
	ConversionFailed      bool      `json:"conversionFailed"`
	CreatedAt             time.Time `json:"createdAt"`
	Display               string    `json:"display"`
}

func toExpenseJSON(e core.NormalizedExpense) expenseJSON {
	return expenseJSON{
		ID:                    e.ID,
		Amount:                e.Amount.StringFixed(core.MinorUnits(e.DisplayCurrencyCode)),
		Category:              e.Category.String(),
		Date:                  e.Date.String(),
		DisplayCurrencyCode:   e.DisplayCurrencyCode,
		OriginalCurrencyCode:  e.OriginalCurrencyCode,
		OriginalAmount:        e.OriginalAmount.String(),
		ConversionRateApplied: e.ConversionRateApplied.String(),
		ConversionFailed:      e.ConversionFailed,
		CreatedAt:             e.CreatedAt,
		Display:               core.FormatAmount(e),
	}
}

type listingJSON struct {
	Items     []expenseJSON `json:"items"`
	Stale     bool          `json:"stale"`
	FetchedAt *time.Time    `json:"fetchedAt,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func toListingJSON(s cache.Snapshot) listingJSON {
	out := listingJSON{
		Items: make([]expenseJSON, len(s.Records)),
		Stale: s.Stale,
	}
	for i, r := range s.Records {
		out.Items[i] = toExpenseJSON(r)
	}
	if !s.FetchedAt.IsZero() {
		t := s.FetchedAt
		out.FetchedAt = &t
	}
	return out
}
