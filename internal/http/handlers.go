package http

import (
	"net/http"

	"spesefx/internal/core"
)

type optionsJSON struct {
	Categories        []string              `json:"categories"`
	Currencies        []core.CurrencyOption `json:"currencies"`
	ReferenceCurrency string                `json:"referenceCurrency"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleOptions lists the choices a submission form offers.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	cats := core.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	NewJSONResponse().Body(optionsJSON{
		Categories:        names,
		Currencies:        core.CurrencyOptions(),
		ReferenceCurrency: s.reference,
	}).Write(w)
}
