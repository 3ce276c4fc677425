package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfbot/shelfbot/internal/adapters/driven/storage/sqlite"
	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/core/services"
)

var (
	searchDataDir string
	searchJSON    bool
)

// searchCmd queries the local catalog directly, bypassing Telegram.
// Useful for checking what a deployment has indexed.
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the local catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchDataDir, "data-dir", "", "catalog data directory (default ~/.shelfbot/data)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	store, err := sqlite.NewStore(searchDataDir)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	svc := services.NewSearchService(store.FileStore(), services.DefaultPageSize)

	session, err := svc.Search(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, session.Results)
	}
	return outputSearchTable(cmd, session.Results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.FileRecord) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.FileRecord) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("%d results:\n\n", len(results))
	for i, r := range results {
		cmd.Printf("[%d] %s (%s, %d downloads)\n",
			i+1, r.DisplayName, domain.FormatSize(r.SizeBytes), r.DownloadCount)
	}
	return nil
}
