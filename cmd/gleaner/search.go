package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the site and print the collected posts as JSON",
	Long:  `Runs one search, opening a login window first when no valid session exists. Results come from the cache when the same query and count were searched recently.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var searchCount int

func init() {
	searchCmd.Flags().IntVarP(&searchCount, "count", "n", models.DefaultSearchCount, "Number of posts to collect")
}

func runSearch(cmd *cobra.Command, args []string) error {
	request := models.SearchRequest{Query: args[0], Count: searchCount}
	request.Normalize()
	if err := request.Validate(); err != nil {
		return err
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signalContext()
	defer stop()

	records, err := application.SearchService.Search(ctx, request.Query, request.Count)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionUnavailable) {
			return fmt.Errorf("%w (run 'gleaner login' or set %s)", err, config.Session.CookiesEnv)
		}
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(records)
}
