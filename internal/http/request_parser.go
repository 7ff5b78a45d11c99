package http

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spesefx/internal/core"
)

// maxBodyBytes bounds request bodies; an expense is a handful of short fields.
const maxBodyBytes = 16 << 10

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields by name.
type RequestBodyParser struct {
	contentType string
	jsonData    map[string]any
	formData    url.Values
}

// ParseRequestBody reads and decodes r's body according to its Content-Type.
func ParseRequestBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, error) {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(p.contentType)
	isJSON := mediaType == "application/json" ||
		(mediaType == "" && len(body) > 0 && body[0] == '{')

	if isJSON {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(body, &p.jsonData); err != nil {
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		return p, nil
	}

	p.formData, err = url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("decode form body: %w", err)
	}
	return p, nil
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Candidate maps the body's fields onto a candidate expense. Missing fields
// stay empty for the validator to report; malformed values are errors.
func (p *RequestBodyParser) Candidate() (core.CandidateExpense, error) {
	b := core.NewCandidateBuilder()
	for _, field := range core.Fields() {
		if err := b.Set(field, p.Get(string(field))); err != nil {
			return core.CandidateExpense{}, err
		}
	}
	return b.Candidate(), nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s))
}
