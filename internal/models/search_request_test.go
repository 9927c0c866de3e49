package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		request SearchRequest
		valid   bool
	}{
		{"defaults applied", SearchRequest{Query: " coffee "}, true},
		{"explicit count", SearchRequest{Query: "coffee", Count: 50}, true},
		{"empty query", SearchRequest{Query: "   ", Count: 5}, false},
		{"count too large", SearchRequest{Query: "coffee", Count: 51}, false},
		{"negative count", SearchRequest{Query: "coffee", Count: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.request.Normalize()
			err := tt.request.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSearchRequestNormalize(t *testing.T) {
	request := SearchRequest{Query: "  Coffee beans "}
	request.Normalize()

	assert.Equal(t, "Coffee beans", request.Query)
	assert.Equal(t, DefaultSearchCount, request.Count)
}
