// Package common provides configuration, logging and small shared helpers.
//
// URL templates in the [site] section use {name} placeholders that are
// filled at runtime, e.g. search_url = "https://host/search?keyword={query}".
package common

import (
	"net/url"
	"regexp"

	"github.com/ternarybob/arbor"
)

// keyRefPattern matches {name} placeholders
// Allows alphanumeric characters, hyphens, and underscores
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences replaces all {name} placeholders in input with values
// from vars. Unknown placeholders are left unchanged and logged as warnings.
func ReplaceKeyReferences(input string, vars map[string]string, logger arbor.ILogger) string {
	if input == "" {
		return input
	}

	logUnresolvedKeys(input, vars, logger)

	return keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		if value, exists := vars[match[1:len(match)-1]]; exists {
			return value
		}
		return match
	})
}

// ExpandSearchURL fills the {query} placeholder with the query-escaped search terms
func ExpandSearchURL(template, query string, logger arbor.ILogger) string {
	return ReplaceKeyReferences(template, map[string]string{"query": url.QueryEscape(query)}, logger)
}

func logUnresolvedKeys(input string, vars map[string]string, logger arbor.ILogger) {
	if logger == nil {
		return
	}
	for _, match := range keyRefPattern.FindAllStringSubmatch(input, -1) {
		if _, exists := vars[match[1]]; !exists {
			logger.Warn().
				Str("reference", match[0]).
				Str("key", match[1]).
				Msg("Unresolved placeholder in URL template")
		}
	}
}
