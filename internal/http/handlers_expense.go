package http

import (
	"errors"
	"net/http"

	"spesefx/internal/core"
	"spesefx/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)

	body, err := ParseRequestBody(w, r)
	if err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	candidate, err := body.Candidate()
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	record, err := s.expenses.Save(ctx, candidate)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrValidation):
		ValidationErrorResponse(err).Write(w)
		return
	default:
		// The submitter may retry; nothing was stored and nothing was announced.
		logger.ErrorContext(ctx, "Failed to save expense",
			log.FieldOperation, log.OpCreate,
			log.FieldError, err)
		InternalServerError("could not save expense, please retry").Write(w)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/expenses").
		Body(toExpenseJSON(record)).
		Write(w)
}

// handleListExpenses serves the cached listing without touching the store.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(toListingJSON(s.listing.Current())).Write(w)
}

// handleRefreshExpenses forces a reload. On failure it still returns the
// last good listing, flagged stale.
func (s *Server) handleRefreshExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := s.listing.Refresh(ctx); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentCache).WarnContext(ctx, "Explicit refresh failed",
			log.FieldOperation, log.OpRefresh,
			log.FieldError, err)

		body := toListingJSON(s.listing.Current())
		body.Error = "could not load expenses, showing last known list"
		NewJSONResponse().Status(http.StatusServiceUnavailable).Body(body).Write(w)
		return
	}

	NewJSONResponse().Body(toListingJSON(s.listing.Current())).Write(w)
}
