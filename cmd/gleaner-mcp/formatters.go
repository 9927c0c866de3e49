package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/gleaner/internal/models"
)

// formatSearchResults formats detail records as markdown
func formatSearchResults(query string, records []models.DetailRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\" (%d posts)\n\n", query, len(records)))

	if len(records) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String()
	}

	for i, record := range records {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, record.Title))
		if record.Author != "" {
			sb.WriteString(fmt.Sprintf("**Author:** %s", record.Author))
			if record.AuthorDesc != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", record.AuthorDesc))
			}
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("**URL:** %s\n", record.Link))

		if record.IsDegraded() {
			sb.WriteString("\n_Details could not be fetched for this post._\n\n---\n\n")
			continue
		}

		sb.WriteString(fmt.Sprintf("**Likes:** %d | **Collects:** %d | **Comments:** %d\n",
			record.Likes, record.Collects, record.Comments))
		if len(record.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("**Tags:** %s\n", strings.Join(record.Tags, ", ")))
		}

		sb.WriteString("\n#### Content:\n")
		sb.WriteString(record.Content)
		sb.WriteString("\n")

		if len(record.Images) > 0 {
			sb.WriteString("\n#### Images:\n")
			for _, image := range record.Images {
				sb.WriteString(fmt.Sprintf("- %s\n", image))
			}
		}
		sb.WriteString("\n---\n\n")
	}

	return sb.String()
}

// formatCacheStats formats cache statistics as markdown
func formatCacheStats(stats models.CacheStats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Cache (%d entries)\n\n", stats.Total))

	if stats.Total == 0 {
		sb.WriteString("The cache is empty.\n")
		return sb.String()
	}

	if stats.Oldest != nil {
		sb.WriteString(fmt.Sprintf("**Oldest:** \"%s\" x%d, cached %s\n",
			stats.Oldest.Query, stats.Oldest.Count, stats.Oldest.StoredAt.Format(time.RFC3339)))
	}
	if stats.Newest != nil {
		sb.WriteString(fmt.Sprintf("**Newest:** \"%s\" x%d, cached %s\n",
			stats.Newest.Query, stats.Newest.Count, stats.Newest.StoredAt.Format(time.RFC3339)))
	}

	return sb.String()
}
