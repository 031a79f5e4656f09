// Command ragpilot runs the orchestration engine: the HTTP + WebSocket
// front end under internal/httpapi, and an MCP server exposing the same
// vector index as a tool catalog, the way the teacher's coordinator runs
// its HTTP and MCP surfaces side by side.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/k-moffett/ragpilot/internal/config"
	"github.com/k-moffett/ragpilot/internal/httpapi"
	"github.com/k-moffett/ragpilot/internal/llm"
	"github.com/k-moffett/ragpilot/internal/mcptools"
	"github.com/k-moffett/ragpilot/internal/rag"
	"github.com/k-moffett/ragpilot/internal/store"
	"github.com/k-moffett/ragpilot/internal/vectorstore"
)

func main() {
	mode := flag.String("mode", "both", "Server mode: http, mcp, or both")
	configPath := flag.String("config", "", "Path to env file (default: .env in current dir, if present)")
	resetCollection := flag.Bool("reset-collection", false, "Delete and recreate the Qdrant collection before starting")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	envPath := *configPath
	if envPath == "" {
		if _, err := os.Stat(".env"); err == nil {
			envPath = ".env"
		}
	}
	cfgStore, err := config.NewStore(envPath, logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	cfg := cfgStore.Get()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if envPath != "" {
		stopWatch, err := cfgStore.Watch()
		if err != nil {
			logger.Warn("config hot-reload disabled", zap.Error(err))
		} else {
			defer stopWatch()
		}
	}

	logger.Info("starting ragpilot", zap.String("mode", *mode))

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		logger.Fatal("MONGODB_URI environment variable is required")
	}
	mongoDatabase := os.Getenv("MONGODB_DATABASE")
	if mongoDatabase == "" {
		mongoDatabase = "ragpilot"
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		logger.Fatal("failed to ping MongoDB", zap.Error(err))
	}
	logger.Info("connected to MongoDB", zap.String("database", mongoDatabase))

	db := mongoClient.Database(mongoDatabase)
	sessionStore := store.New(db, logger)

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logger.Fatal("failed to build embedding provider", zap.Error(err))
	}

	vectorSize := 1024
	qdrantStore := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		BaseURL:        envOr("QDRANT_URL", "http://localhost:6333"),
		APIKey:         os.Getenv("QDRANT_API_KEY"),
		CollectionName: envOr("QDRANT_COLLECTION", "ragpilot_messages"),
		VectorSize:     vectorSize,
	})

	if *resetCollection {
		if !confirmCollectionReset(envOr("QDRANT_COLLECTION", "ragpilot_messages")) {
			logger.Fatal("collection reset declined, exiting")
		}
		if err := qdrantStore.RecreateCollection(connectCtx); err != nil {
			logger.Fatal("failed to recreate Qdrant collection", zap.Error(err))
		}
	} else if err := qdrantStore.EnsureCollection(connectCtx); err != nil {
		logger.Fatal("failed to ensure Qdrant collection", zap.Error(err))
	}

	completionProvider, err := llm.NewCompletionProvider(llm.ProviderConfig{
		Provider:  envOr("LLM_PROVIDER", "openai"),
		APIKey:    os.Getenv("LLM_API_KEY"),
		BaseURL:   os.Getenv("LLM_BASE_URL"),
		MaxTokens: cfg.Server.CompletionMaxTokens,
	})
	if err != nil {
		logger.Fatal("failed to build completion provider", zap.Error(err))
	}

	orchestrator := buildOrchestrator(completionProvider, qdrantStore, embedder, cfg, logger)

	svc := httpapi.NewService(
		orchestrator,
		completionProvider,
		sessionStore,
		cfg.LLMModel,
		cfg.Server.CompletionTemperature,
		cfg.Server.CompletionMaxTokens,
		logger,
	)

	mcpServer := buildMCPServer(qdrantStore, embedder, cfg, logger)

	ctx, stop := setupSignalHandler()
	defer stop()

	var wg sync.WaitGroup

	switch *mode {
	case "http":
		wg.Add(1)
		go runHTTP(ctx, &wg, svc, cfg.Server.Port, logger)
	case "mcp":
		wg.Add(1)
		go runMCP(ctx, &wg, mcpServer, logger)
	case "both":
		wg.Add(1)
		go runHTTP(ctx, &wg, svc, cfg.Server.Port, logger)
		wg.Add(1)
		go runMCP(ctx, &wg, mcpServer, logger)
	default:
		logger.Fatal("invalid mode, use http, mcp, or both", zap.String("mode", *mode))
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping servers")
	wg.Wait()
	logger.Info("shutdown complete")
}

func runHTTP(ctx context.Context, wg *sync.WaitGroup, svc *httpapi.Service, port string, logger *zap.Logger) {
	defer wg.Done()
	router := httpapi.NewRouter(svc)
	if err := httpapi.Run(ctx, ":"+port, router, logger); err != nil {
		logger.Error("http server error", zap.Error(err))
	}
}

func runMCP(ctx context.Context, wg *sync.WaitGroup, server *mcp.Server, logger *zap.Logger) {
	defer wg.Done()
	transport := &mcp.StdioTransport{}
	if err := server.Run(ctx, transport); err != nil {
		logger.Error("mcp server error", zap.Error(err))
	}
}

// buildOrchestrator wires every pipeline stage from config, the way the
// teacher's createMCPServer wires every handler from its storage layers.
func buildOrchestrator(
	llmProvider rag.CompletionProvider,
	qdrantStore *vectorstore.QdrantStore,
	embedder rag.EmbeddingProvider,
	cfg *config.Config,
	logger *zap.Logger,
) *rag.Orchestrator {
	cache := rag.NewCache(cfg.Cache.MaxSize, cfg.Cache.Enabled)

	router := rag.NewRouter(llmProvider, cache, &cfg.Router, &cfg.Cache, cfg.LLMModel, logger)
	enhancer := rag.NewEnhancer(llmProvider, cache, &cfg.Enhancer, &cfg.Cache, cfg.LLMModel, logger)
	decomposer := rag.NewDecomposer(llmProvider, cache, &cfg.Decomposer, &cfg.Cache, cfg.LLMModel, logger)
	retriever := rag.NewRetriever(qdrantStore, embedder, &cfg.Retriever, cfg.EmbeddingModel, logger)
	validator := rag.NewValidator(llmProvider, &cfg.Validator, cfg.LLMModel, logger)
	contextMgr := rag.NewContextWindowManager(&cfg.ContextWindow)
	promptBuilder := rag.NewPromptBuilder(&cfg.PromptBuilder)
	toolPlanner := rag.NewToolPlanner(llmProvider, &cfg.ToolPlanner, cfg.LLMModel, mcptools.ToolNames(), logger)
	grader := rag.NewGrader(llmProvider, &cfg.Grader, cfg.LLMModel, logger)

	return rag.NewOrchestrator(
		router, enhancer, decomposer, retriever, validator,
		contextMgr, promptBuilder, toolPlanner, grader,
		cfg.Retriever.MaxResultsPerQuery, logger,
	)
}

func buildMCPServer(qdrantStore *vectorstore.QdrantStore, embedder rag.EmbeddingProvider, cfg *config.Config, logger *zap.Logger) *mcp.Server {
	impl := &mcp.Implementation{
		Name:    "ragpilot-orchestrator",
		Version: "1.0.0",
	}
	server := mcp.NewServer(impl, &mcp.ServerOptions{HasTools: true})

	if err := mcptools.Register(server, qdrantStore, embedder, cfg.EmbeddingModel); err != nil {
		logger.Fatal("failed to register MCP tools", zap.Error(err))
	}
	return server
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// buildEmbedder selects the EmbeddingProvider backend via EMBEDDING_PROVIDER
// ("voyage", the default, or "openai").
func buildEmbedder(cfg *config.Config) (rag.EmbeddingProvider, error) {
	switch envOr("EMBEDDING_PROVIDER", "voyage") {
	case "voyage":
		return llm.NewVoyageEmbedder(llm.VoyageEmbeddingConfig{
			APIKey: os.Getenv("VOYAGE_API_KEY"),
			Model:  cfg.EmbeddingModel,
		}), nil
	case "openai":
		return llm.NewOpenAIEmbedder(llm.OpenAIEmbeddingConfig{
			APIKey:  os.Getenv("LLM_API_KEY"),
			BaseURL: os.Getenv("LLM_BASE_URL"),
			Model:   cfg.EmbeddingModel,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", os.Getenv("EMBEDDING_PROVIDER"))
	}
}

// isInteractiveTerminal checks if the program is running in an interactive
// terminal, the way the teacher's http_server.go gates its own destructive
// prompts.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirmCollectionReset prompts the operator before a destructive
// --reset-collection run. Outside an interactive terminal there is nobody
// to prompt, so the reset is refused rather than silently applied.
func confirmCollectionReset(collection string) bool {
	if !isInteractiveTerminal() {
		fmt.Fprintln(os.Stderr, "refusing --reset-collection: not running in an interactive terminal")
		return false
	}

	fmt.Printf("\nThis will delete every indexed vector in collection %q.\n", collection)
	fmt.Print("Continue? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
