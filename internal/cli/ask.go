package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"docsqa/internal/domain"
)

var (
	askText        string
	askJSON        bool
	askShowContext bool
)

var (
	answerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the documentation",
	Long: `Retrieve the passages most similar to the question and ask the configured
language model to answer from them. The answer is printed with the source
files it was grounded on.

Examples:
  docsqa ask -q "How do I rotate the API key?"
  docsqa ask -q "What ports does it use?" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question to answer (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the passages given to the model")
	askCmd.MarkFlagRequired("query")
}

type askOutput struct {
	Answer          string                  `json:"answer"`
	SourceDocuments []domain.SourceDocument `json:"source_documents"`
	Sources         []string                `json:"sources"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	answerUC, _, err := newAnswerUseCase(GetConfig(), GetRootDir(), GetLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resp, err := answerUC.AnswerQuery(ctx, askText)
	if err != nil {
		return err
	}

	if askJSON {
		sources := resp.SourceDocuments
		if sources == nil {
			sources = []domain.SourceDocument{}
		}
		return writeJSON(os.Stdout, askOutput{
			Answer:          resp.Answer,
			SourceDocuments: sources,
			Sources:         resp.UniqueSources(),
		})
	}

	renderAnswer(os.Stdout, resp, askShowContext)
	return nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// renderAnswer prints the answer box followed by the deduplicated sources.
func renderAnswer(w io.Writer, resp domain.RagResponse, showContext bool) {
	fmt.Fprintln(w, answerStyle.Render(strings.TrimSpace(resp.Answer)))

	sources := resp.UniqueSources()
	if len(sources) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No sources."))
		return
	}

	fmt.Fprintln(w, headingStyle.Render("Sources"))
	for i, src := range sources {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, sourceStyle.Render(src))
	}

	if !showContext {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("Context"))
	for i, doc := range resp.SourceDocuments {
		fmt.Fprintf(w, "%s\n%s\n\n",
			mutedStyle.Render(fmt.Sprintf("[%d] %s (score: %.3f)", i+1, doc.SourcePath, doc.Score)),
			truncate(strings.TrimSpace(doc.Text), 300))
	}
}
