package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docsqa/config"
	"docsqa/internal/adapter/embedding"
	"docsqa/internal/adapter/store"
	"docsqa/internal/domain"
	"docsqa/internal/usecase"
)

func main() {
	projectDir := flag.String("dir", ".", "Project directory containing rag.yaml and the index")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./project -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index metadata (model, dimension, chunking)")
		fmt.Println("  2. Query embedding and search latency")
		fmt.Println("  3. Similarity of the top matches")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*projectDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	ix, err := store.Load(cfg.IndexPath(*projectDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	if err := ix.Compatible(embedder); err != nil {
		fmt.Fprintf(os.Stderr, "Index does not match embedder: %v\n", err)
		os.Exit(1)
	}

	meta := ix.Meta()
	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Entries indexed: %d\n", ix.Len())
	fmt.Printf("Model: %s (%s)\n", meta.EmbeddingModel, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", meta.Dimension)
	fmt.Printf("Chunking: %d/%d\n", meta.ChunkSize, meta.ChunkOverlap)
	if reason := store.StaleReason(meta, cfg); reason != "" {
		fmt.Printf("Warning: index is stale: %s\n", reason)
	}
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	retriever := usecase.NewRetrieveUseCase(embedder, ix, 0)
	start := time.Now()
	results, err := retriever.Retrieve(context.Background(), *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	fmt.Printf("Retrieved %d matches in %s\n\n", len(results), elapsed.Round(time.Microsecond))
	if len(results) == 0 {
		fmt.Println("No matches. Is the index empty?")
		return
	}

	totalScore := 0.0
	for i, r := range usecase.ToScoredChunkResults(results) {
		preview := []rune(strings.ReplaceAll(r.Text, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}

		totalScore += r.Score

		rating := "LOW"
		if r.Score > 0.7 {
			rating = "HIGH"
		} else if r.Score > 0.5 {
			rating = "GOOD"
		} else if r.Score > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s #%d\n", i+1, rating, r.Score, shortPath(r.Path), r.Seq)
		fmt.Printf("   %s\n\n", string(preview))
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)
	fmt.Printf("  Distinct sources:   %d\n", distinctSources(results))

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - retrieval is finding closely related passages")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - consider a stronger embedding model or re-chunking")
	}
}

func shortPath(path string) string {
	dir, file := filepath.Split(path)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return file
	}
	return filepath.Join(parent, file)
}

func distinctSources(results domain.RetrievalResult) int {
	seen := make(map[string]struct{})
	for _, r := range results {
		seen[r.Entry.Path] = struct{}{}
	}
	return len(seen)
}
