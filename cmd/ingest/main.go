// Command ingest loads a bylaws document into the search index.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/parkridge-hoa/bylaws-assistant/internal/config"
	dbRedis "github.com/parkridge-hoa/bylaws-assistant/internal/db/redis"
	"github.com/parkridge-hoa/bylaws-assistant/internal/domain/chunk"
	logpkg "github.com/parkridge-hoa/bylaws-assistant/internal/logger"
	"github.com/parkridge-hoa/bylaws-assistant/internal/repository/embcache"
	indexrepo "github.com/parkridge-hoa/bylaws-assistant/internal/repository/index"
	openaiTransport "github.com/parkridge-hoa/bylaws-assistant/internal/transport/openai"
	ingestuc "github.com/parkridge-hoa/bylaws-assistant/internal/usecase/ingest"
)

var (
	flagClear    bool
	flagDryRun   bool
	flagMaxChunk int
	flagOverlap  int
	flagMinChunk int
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load HOA bylaws into the search index",
	Long: `Chunks a bylaws document, embeds the chunks and upserts them into
the Redis search index used by the assistant API.

Examples:
  ingest run bylaws.txt            # Ingest a text document
  ingest run bylaws.pdf --clear    # Re-ingest from scratch
  ingest run bylaws.txt --dry-run  # Preview chunking, no network calls
  ingest clear                     # Wipe the index
  ingest stats                     # Show index state`,
}

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Chunk, embed and upsert a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every indexed chunk",
	RunE:  runClear,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document count and a sample chunk",
	RunE:  runStats,
}

func init() {
	ingestDefaults := chunk.IngestConfig()
	runCmd.Flags().BoolVar(&flagClear, "clear", false, "clear the index before ingesting")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "chunk and summarize without embedding or indexing")
	runCmd.Flags().IntVar(&flagMaxChunk, "max-chunk-size", ingestDefaults.MaxChunkSize, "maximum chunk size in characters")
	runCmd.Flags().IntVar(&flagOverlap, "overlap-size", ingestDefaults.OverlapSize, "overlap between consecutive chunks")
	runCmd.Flags().IntVar(&flagMinChunk, "min-chunk-size", ingestDefaults.MinChunkSize, "minimum chunk size to keep")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func chunkConfig() chunk.Config {
	return chunk.Config{
		MaxChunkSize: flagMaxChunk,
		OverlapSize:  flagOverlap,
		MinChunkSize: flagMinChunk,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	text, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %s (%d characters)\n", filepath.Base(args[0]), len(text))

	if flagDryRun {
		summary, err := chunk.Preview(text, chunkConfig())
		if err != nil {
			return fmt.Errorf("preview failed: %w", err)
		}
		printSummary(summary)
		return nil
	}

	svc, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Embedding"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		_ = bar.Set(done)
	}

	result, err := svc.Ingest(context.Background(), text, ingestuc.Options{
		ClearFirst: flagClear,
		Progress:   progress,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Chunks indexed:   %d\n", result.Chunks)
	fmt.Printf("  Sectioned chunks: %d\n", result.Sections)
	if flagClear {
		fmt.Printf("  Chunks cleared:   %d\n", result.Cleared)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	cleared, err := svc.Clear(context.Background())
	if err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Printf("Cleared %d chunks\n", cleared)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := svc.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	fmt.Printf("Index: %s\n", stats.IndexName)
	fmt.Printf("Documents: %d\n", stats.DocumentCount)
	if stats.Sample != nil {
		fmt.Printf("Sample chunk: %s", stats.Sample.ID)
		if stats.Sample.HasSection {
			fmt.Printf(" (Section %s - %s)", stats.Sample.SectionNumber, stats.Sample.SectionTitle)
		}
		fmt.Println()
	}
	return nil
}

// buildService wires config, store and providers. The returned cleanup
// closes the store connection.
func buildService() (*ingestuc.Service, func(), error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database store: %w", err)
	}

	if err := store.WaitForReady(context.Background(), time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("database not ready: %w", err)
	}

	var embedder ingestuc.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.EmbeddingDimensions,
		Logger:     logger,
	})
	if cfg.OpenAI.CacheEmbeddings {
		embedder = embcache.New(embedder, store, logger)
	}

	repo := indexrepo.New(store, indexrepo.Config{
		Name:            cfg.Index.Name,
		KeyPrefix:       cfg.Index.KeyPrefix,
		VectorDim:       cfg.OpenAI.EmbeddingDimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	}, logger)

	svc, err := ingestuc.New(embedder, repo, chunkConfig(), logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = logger.Sync()
		store.Close()
	}
	return svc, cleanup, nil
}

// loadDocument reads a .txt or .pdf file as plain text.
func loadDocument(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	case ".pdf":
		return loadPDF(path)
	default:
		return "", fmt.Errorf("unsupported file type %q, expected .txt, .md or .pdf", filepath.Ext(path))
	}
}

func loadPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("no text extracted from %s", path)
	}
	return buf.String(), nil
}

func printSummary(s chunk.Summary) {
	fmt.Printf("\nDry run, nothing was indexed.\n\n")
	fmt.Printf("Chunks:          %d\n", s.TotalChunks)
	fmt.Printf("Average size:    %d characters\n", s.AverageSize)
	fmt.Printf("Sectioned:       %d\n", s.SectionsFound)
	fmt.Printf("Coverage:        %d%%\n", s.CoveragePercent)
	if len(s.SectionNumbers) > 0 {
		fmt.Printf("Sections found:  %s\n", strings.Join(s.SectionNumbers, ", "))
	}
	for _, sample := range s.Samples {
		fmt.Printf("\n%s", sample.ID)
		if sample.SectionNumber != "" {
			fmt.Printf(" (Section %s - %s)", sample.SectionNumber, sample.SectionTitle)
		}
		fmt.Printf(", %d chars:\n  %s\n", sample.Length, sample.Preview)
	}
}
