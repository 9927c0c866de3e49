package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultSearchCount = 10
	MaxSearchCount     = 50
)

// SearchRequest is the input accepted by the HTTP, MCP and CLI surfaces
type SearchRequest struct {
	Query string `json:"query" validate:"required,max=256"`
	Count int    `json:"count" validate:"min=1,max=50"`
}

// Normalize trims the query and applies the default count
func (r *SearchRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	if r.Count == 0 {
		r.Count = DefaultSearchCount
	}
}

// Validate validates the request using go-playground/validator.
func (r *SearchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
