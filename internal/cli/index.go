package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docsqa/internal/adapter/chunker"
	"docsqa/internal/adapter/embedding"
	"docsqa/internal/adapter/fs"
	"docsqa/internal/adapter/store"
	"docsqa/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build the vector index from the documentation corpus",
	Long: `Load, chunk and embed every matching file under the corpus directory and
replace the index. The previous index stays in place if anything fails.

The corpus directory defaults to corpus.root from the config.

Examples:
  docsqa index               # Index corpus.root
  docsqa index ./handbook    # Index a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	root := cfg.CorpusRoot(dir)
	if len(args) > 0 {
		root = filepath.Clean(args[0])
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("corpus does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus is not a directory: %s", root)
	}

	chk, err := chunker.NewRecursiveChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap, cfg.Index.Separators)
	if err != nil {
		return err
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return err
	}

	loader := fs.NewLoader(fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes))
	indexUC := usecase.NewIndexUseCase(loader, chk, embedder, usecase.IndexOptions{
		Location:     cfg.IndexPath(dir),
		BatchSize:    cfg.Embedding.BatchSize,
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		ConfigHash:   store.ComputeConfigHash(cfg),
	}, GetLogger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Scanning %s...\n", root)
	fmt.Printf("Embedding with %s (%d dimensions)\n", embedder.ModelName(), embedder.Dimension())

	// Progress bar is created once the chunk total is known
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := indexUC.Index(ctx, root, progressCallback)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Documents:  %d\n", result.Documents)
	fmt.Printf("  Chunks:     %d\n", result.Chunks)
	fmt.Printf("  Model:      %s (%d dimensions)\n", result.Model, result.Dimension)
	fmt.Printf("  Duration:   %s\n", formatDuration(result.Duration))

	if result.Entries == 0 {
		fmt.Printf("\nWarning: no files matched %v under %s\n", cfg.Corpus.Includes, root)
	}

	fmt.Printf("\nIndex stored at: %s\n", result.Location)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
