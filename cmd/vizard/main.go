package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vizard/internal/config"
	"vizard/internal/credentials"
	"vizard/internal/embedding"
	"vizard/internal/executor"
	"vizard/internal/llm"
	"vizard/internal/logging"
	"vizard/internal/resolver"
	"vizard/internal/schema"
	"vizard/internal/session"
	"vizard/internal/store"
	"vizard/internal/types"
)

// Version is stamped at build time.
var Version = "0.3.0-dev"

var (
	configPath string
	verbose    bool
	endpoint   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vizard",
	Short: "vizard - data agent for prompt-driven visualization",
	Long: `vizard keeps a long-running session to the runtime, resolving user
prompts into visualization artifacts: matching against the published catalog
first, synthesizing new artifacts when nothing fits, and serving data-fetch
requests against the row store and the warehouse.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the runtime and serve the session until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [prompt]",
	Short: "Resolve one prompt locally and print the artifact (no session)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vizard version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vizard %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "vizard.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "runtime websocket endpoint (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		cfg.Session.Endpoint = endpoint
	}
	if verbose {
		cfg.Logging.Debug = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) error {
	return logging.Initialize(logging.Options{
		DebugMode: cfg.Logging.Debug,
		Dir:       cfg.Logging.Dir,
		Level:     cfg.Logging.Level,
	})
}

func buildResolver(cfg *config.Config) (*resolver.Resolver, *store.Store, error) {
	client, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.GetLLMTimeout(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	def := schema.Default()
	if cfg.Schema.Path != "" {
		if def, err = schema.Load(cfg.Schema.Path); err != nil {
			return nil, nil, fmt.Errorf("failed to load schema: %w", err)
		}
	}

	var st *store.Store
	if cfg.Resolver.Strategy == "vector" {
		engine, err := embedding.NewEngine(embeddingConfig(cfg))
		if err != nil {
			logger.Warn("embedding engine unavailable, falling back to rank matching", zap.Error(err))
		} else if st, err = store.Open(cfg.Store.Path, engine); err != nil {
			return nil, nil, fmt.Errorf("failed to open candidate store: %w", err)
		}
	}

	r := resolver.New(client, st, schema.Describe(def), resolver.Config{
		Strategy:      cfg.Resolver.Strategy,
		Collection:    cfg.Store.Collection,
		TopK:          cfg.Resolver.TopK,
		MinConfidence: cfg.Resolver.MinConfidence,
		RowLimit:      cfg.Resolver.RowLimit,
	})
	return r, st, nil
}

func embeddingConfig(cfg *config.Config) embedding.Config {
	ecfg := embedding.DefaultConfig()
	if cfg.Embedding.Provider != "" {
		ecfg.Provider = cfg.Embedding.Provider
	}
	switch ecfg.Provider {
	case "genai":
		ecfg.GenAIAPIKey = cfg.Embedding.APIKey
		if cfg.Embedding.Model != "" {
			ecfg.GenAIModel = cfg.Embedding.Model
		}
	default:
		if cfg.Embedding.BaseURL != "" {
			ecfg.OllamaEndpoint = cfg.Embedding.BaseURL
		}
		if cfg.Embedding.Model != "" {
			ecfg.OllamaModel = cfg.Embedding.Model
		}
	}
	return ecfg
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.CloseAll()

	res, st, err := buildResolver(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	rowExec, err := executor.NewSQLiteExecutor(cfg.Executors.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open row store: %w", err)
	}
	defer rowExec.Close()

	opts := []session.Option{
		session.WithResolver(res),
		session.WithRowExecutor(rowExec),
	}
	if st != nil {
		opts = append(opts, session.WithCandidateStore(st))
	}

	if cfg.Executors.WarehouseDSN != "" {
		wh, err := executor.NewPostgresExecutor(ctx, cfg.Executors.WarehouseDSN)
		if err != nil {
			return fmt.Errorf("failed to connect warehouse: %w", err)
		}
		defer wh.Close()
		opts = append(opts, session.WithWarehouseExecutor(wh))
	}

	var creds *credentials.Store
	if cfg.Credentials.Watch {
		creds, err = credentials.OpenWatched(cfg.Credentials.Path)
	} else {
		creds, err = credentials.Open(cfg.Credentials.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer creds.Close()
	opts = append(opts, session.WithCredentialStore(creds))

	mgr := session.New(session.Config{
		Endpoint:             cfg.Session.Endpoint,
		UserID:               cfg.Session.UserID,
		ProjectID:            cfg.Session.ProjectID,
		Role:                 types.Role(cfg.Session.Role),
		ReconnectDelay:       cfg.GetReconnectDelay(),
		MaxReconnectAttempts: cfg.Session.MaxReconnectAttempts,
		RequestTimeout:       cfg.GetRequestTimeout(),
		MaxMessageBytes:      cfg.Session.MaxMessageBytes,
		SyncCatalog:          cfg.Session.SyncCatalog,
		Collection:           cfg.Store.Collection,
	}, opts...)

	if err := mgr.Connect(ctx); err != nil {
		return err
	}
	logger.Info("session established",
		zap.String("endpoint", cfg.Session.Endpoint),
		zap.String("role", cfg.Session.Role))

	select {
	case <-ctx.Done():
		logger.Info("shutting down on signal")
		mgr.Disconnect()
	case <-mgr.Closed():
		logger.Warn("session closed")
	}
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.CloseAll()

	res, st, err := buildResolver(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	resolution, err := res.Resolve(cmd.Context(), strings.Join(args, " "), types.Catalog{})
	if err != nil {
		return err
	}

	fmt.Printf("method: %s\n", resolution.Method)
	if resolution.Artifact != nil {
		fmt.Printf("artifact: %s (%s)\n", resolution.Artifact.ID, resolution.Artifact.Type)
		fmt.Printf("title: %s\n", resolution.Artifact.Props.Title)
		fmt.Printf("query: %s\n", resolution.Artifact.Props.Query)
	}
	if resolution.Reasoning != "" {
		fmt.Printf("reasoning: %s\n", resolution.Reasoning)
	}
	return nil
}
