package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ragstack/docrag/internal/config"
	"github.com/ragstack/docrag/pkg/chunker"
	"github.com/ragstack/docrag/pkg/engine"
	"github.com/ragstack/docrag/pkg/pipeline"
	"github.com/ragstack/docrag/pkg/provider"
	"github.com/ragstack/docrag/pkg/reply"
	"github.com/ragstack/docrag/pkg/store"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Question answering over local documents",
	Long:  `Ingest documents into a local vector index and answer questions about them with page-level citations.`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Chunk, embed, and index one or more documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		faq, _ := cmd.Flags().GetBool("faq")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		p, ledger, err := openPipeline(ctx, cfg, faq)
		if err != nil {
			return err
		}
		defer ledger.Close()

		if _, err := p.LoadExisting(); err != nil {
			return fmt.Errorf("failed to load index: %w", err)
		}

		splitter, err := chunker.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
		if err != nil {
			return err
		}

		bar := progressbar.Default(int64(len(args)), "ingesting")
		for _, path := range args {
			pages, err := readPages(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			chunks := splitter.Split(filepath.Base(path), pages)
			stats, err := p.Ingest(ctx, filepath.Base(path), chunks)
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", path, err)
			}
			bar.Add(1)

			if stats.Skipped {
				fmt.Printf("%s: already ingested, skipped\n", stats.Source)
				continue
			}
			fmt.Printf("%s: %d pages, %d chunks (index now holds %d chunks)\n",
				stats.Source, stats.Pages, stats.Chunks, stats.TotalChunks)
		}
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question about the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		eng, ledger, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		loaded, err := eng.LoadExisting()
		if err != nil {
			return fmt.Errorf("failed to load index: %w", err)
		}
		if !loaded {
			return fmt.Errorf("no index found in %s, run 'docrag ingest' first", cfg.VectorStore.PersistDirectory)
		}

		resp, err := eng.Query(ctx, question)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		outputJSON, _ := cmd.Flags().GetBool("json")
		if outputJSON {
			data, _ := json.MarshalIndent(resp, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		color.New(color.FgCyan, color.Bold).Println("Answer:")
		fmt.Println(resp.Answer)
		if len(resp.Sources) > 0 {
			color.New(color.FgYellow).Printf("\nSources: pages %s\n", joinInts(resp.Sources))
		}
		if verbose {
			for i, c := range resp.Chunks {
				fmt.Printf("\n[%d] page %d (%.2f): %s\n", i+1, c.Page, c.Score, c.Preview)
			}
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display index statistics and ingested sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		p, ledger, err := openPipeline(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer ledger.Close()

		if _, err := p.LoadExisting(); err != nil {
			return fmt.Errorf("failed to load index: %w", err)
		}

		stats := p.Store().Stats()
		sources, err := p.Sources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sources: %w", err)
		}

		outputJSON, _ := cmd.Flags().GetBool("json")
		if outputJSON {
			out := struct {
				Stats   store.Stats `json:"stats"`
				Sources []string    `json:"sources"`
			}{stats, sources}
			data, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Println("Index statistics:")
		fmt.Printf("  Chunks: %d\n", stats.Chunks)
		fmt.Printf("  Vectors: %d\n", stats.Vectors)
		fmt.Printf("  Dimensions: %d\n", stats.Dim)
		fmt.Printf("  Index type: %s\n", stats.IndexKind)
		fmt.Printf("Sources (%d):\n", len(sources))
		for _, s := range sources {
			fmt.Printf("  %s\n", s)
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the index and the ingestion record",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		faq, _ := cmd.Flags().GetBool("faq")

		if !yes {
			fmt.Print("This deletes the index and all ingestion records. Continue? [y/N]: ")
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		p, ledger, err := openPipeline(ctx, cfg, faq)
		if err != nil {
			return err
		}
		defer ledger.Close()

		if err := p.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
		fmt.Println("Index cleared.")
		return nil
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply <comments.json>",
	Short: "Generate replies to a batch of comments using the FAQ index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		comments, err := readComments(args[0])
		if err != nil {
			return err
		}
		if len(comments) == 0 {
			return fmt.Errorf("no comments found in %s", args[0])
		}

		ctx := context.Background()
		faq, ledger, err := openPipeline(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer ledger.Close()

		loaded, err := faq.LoadExisting()
		if err != nil {
			return fmt.Errorf("failed to load FAQ index: %w", err)
		}
		if !loaded {
			fmt.Println("Warning: no FAQ index found, replies will not be grounded on FAQ content.")
		}

		_, gen, err := buildProviders(cfg)
		if err != nil {
			return err
		}

		batch := reply.New(faq, gen, reply.Config{
			TopK:     cfg.Retrieval.TopK,
			MinScore: *cfg.Reply.MinScore,
			GenOpts: provider.Options{
				Temperature: *cfg.Models.Generation.Temperature,
				MaxTokens:   cfg.Models.Generation.MaxTokens,
			},
			Model:         cfg.Models.Generation.Name,
			RatePerSecond: cfg.Reply.RatePerSecond,
		})

		bar := progressbar.Default(int64(len(comments)), "replying")
		results, summary, err := batch.Process(ctx, comments, func(done, total int) {
			bar.Set(done)
		})
		if err != nil {
			return fmt.Errorf("batch aborted: %w", err)
		}

		out := struct {
			Summary reply.Summary  `json:"summary"`
			Results []reply.Result `json:"results"`
		}{summary, results}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}

		if outPath != "" {
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Printf("\nWrote %d results to %s (%d replied, %d skipped)\n",
				len(results), outPath, summary.Replied, summary.Skipped)
			return nil
		}
		fmt.Println(string(data))
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	// .env is optional, absence is not an error
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config error: %s\n", e.Error())
		}
		return nil, fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}
	return cfg, nil
}

func buildProviders(cfg *config.Config) (provider.Embedder, provider.Generator, error) {
	switch cfg.Provider {
	case "openai":
		emb, err := provider.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.Models.Embedding.Name)
		if err != nil {
			return nil, nil, err
		}
		gen, err := provider.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.Models.Generation.Name)
		if err != nil {
			return nil, nil, err
		}
		return emb, gen, nil
	default:
		emb, err := provider.NewOllamaEmbedder(cfg.Ollama.BaseURL, cfg.Models.Embedding.Name)
		if err != nil {
			return nil, nil, err
		}
		gen, err := provider.NewOllamaGenerator(cfg.Ollama.BaseURL, cfg.Models.Generation.Name)
		if err != nil {
			return nil, nil, err
		}
		return emb, gen, nil
	}
}

func openPipeline(ctx context.Context, cfg *config.Config, faq bool) (*pipeline.Pipeline, *pipeline.Ledger, error) {
	emb, _, err := buildProviders(cfg)
	if err != nil {
		return nil, nil, err
	}

	dir := cfg.VectorStore.PersistDirectory
	name := "index"
	if faq {
		dir = cfg.VectorStore.FAQDirectory
		name = "faq"
	}

	dim, err := emb.Dimension(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to determine embedding dimension: %w", err)
	}

	s, err := store.New(dim, dir)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	ledger, err := pipeline.OpenLedger(filepath.Join(dir, "ledger.db"))
	if err != nil {
		return nil, nil, err
	}

	return pipeline.New(s, emb, ledger, name), ledger, nil
}

func openEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, *pipeline.Ledger, error) {
	p, ledger, err := openPipeline(ctx, cfg, false)
	if err != nil {
		return nil, nil, err
	}

	_, gen, err := buildProviders(cfg)
	if err != nil {
		ledger.Close()
		return nil, nil, err
	}

	eng := engine.New(p, gen, engine.Config{
		TopK:     cfg.Retrieval.TopK,
		MinScore: *cfg.Retrieval.MinScore,
		GenOpts: provider.Options{
			Temperature: *cfg.Models.Generation.Temperature,
			MaxTokens:   cfg.Models.Generation.MaxTokens,
		},
	})
	return eng, ledger, nil
}

// readPages loads a plain-text document. Form feeds delimit pages; a
// file without them is a single page.
func readPages(path string) ([]chunker.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(data), "\f")
	pages := make([]chunker.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, chunker.Page{Number: i + 1, Text: part})
	}
	return pages, nil
}

// readComments accepts either a bare JSON array of comments or a
// Graph-API style envelope with a top-level "data" array.
func readComments(path string) ([]reply.Comment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var envelope struct {
		Data []reply.Comment `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Data) > 0 {
		return envelope.Data, nil
	}

	var comments []reply.Comment
	if err := json.Unmarshal(data, &comments); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return comments, nil
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	ingestCmd.Flags().Bool("faq", false, "Ingest into the FAQ index instead of the document index")

	queryCmd.Flags().Bool("json", false, "Output as JSON")

	statusCmd.Flags().Bool("json", false, "Output as JSON")

	clearCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	clearCmd.Flags().Bool("faq", false, "Clear the FAQ index instead of the document index")

	replyCmd.Flags().String("out", "", "Write results to a JSON file instead of stdout")

	rootCmd.AddCommand(
		ingestCmd,
		queryCmd,
		statusCmd,
		clearCmd,
		replyCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
