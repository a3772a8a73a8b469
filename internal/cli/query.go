package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docsqa/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the passages most similar to a question",
	Long: `Embed the question and print the closest indexed passages with their
similarity scores. No language model is called.

Examples:
  docsqa query -q "configure the proxy"
  docsqa query -q "upgrade steps" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	retrieveUC, _, err := newRetriever(cfg, GetRootDir())
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	retrieved, err := retrieveUC.Retrieve(context.Background(), queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results := usecase.ToScoredChunkResults(retrieved)

	if queryJSON {
		return writeJSON(os.Stdout, results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s #%d (score: %.3f) ---\n", i+1, r.Path, r.Seq, r.Score)
		fmt.Println(truncate(strings.TrimSpace(r.Text), 500))
		fmt.Println()
	}

	return nil
}

// truncate shortens s to at most n runes for display.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
