package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"sabio/internal/api"
	"sabio/internal/app/bootstrap"
	"sabio/internal/db/postgres"
	redisdb "sabio/internal/db/redis"
	"sabio/internal/domain/agents"
	"sabio/internal/domain/chat"
	"sabio/internal/domain/knowledge"
	"sabio/internal/platform/config"
	applog "sabio/internal/platform/log"
	"sabio/internal/provider"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		applog.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeSeconds) * time.Second)

	if err := db.Ping(); err != nil {
		applog.Fatalf("❌ Failed to ping database: %v", err)
	}
	applog.Info("✅ Connected to PostgreSQL")

	chatStore := postgres.NewChatStore(db)
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := chatStore.EnsureTables(migrateCtx); err != nil {
		applog.Warnf("⚠️  Failed to ensure chat tables: %v", err)
	}
	migrateCancel()

	// Redis 不可用时引擎退化为纯网络爬取，只告警不退出
	redisClient := initRedis(cfg.Redis.URL)
	cache := redisdb.NewKnowledgeCache(redisClient, cfg.Redis.KeyPrefix)
	decisionLog := redisdb.NewDecisionLog(redisClient, 0)

	registry := provider.NewRegistry()
	bootstrap.RegisterLLMProviders(registry, cfg.LLM)

	retriever, ranker, uploader, refresher := initKnowledge(cfg, cache)
	refresher.WithLock(redisdb.NewIngestLock(redisClient, 2*time.Minute))
	if err := refresher.Start(); err != nil {
		applog.Warnf("⚠️  Failed to start knowledge refresher: %v", err)
	}
	defer refresher.Stop()

	router := initAgents(registry, cfg, retriever)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	serverConfig.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second

	chatHandler := api.NewChatHandler(router, chat.NewPromptGuard(), chatStore, decisionLog)
	knowledgeHandler := api.NewKnowledgeHandler(retriever, ranker, uploader, refresher, 10)
	server := api.NewServer(serverConfig, chatHandler, knowledgeHandler)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		applog.Info("🔄 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
		applog.Fatalf("❌ Server error: %v", err)
	}

	applog.Info("👋 Server stopped")
}

func initRedis(url string) *goredis.Client {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		applog.Fatalf("❌ Invalid REDIS_URL: %v", err)
	}

	client := goredis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		applog.Warnf("⚠️  Redis ping failed: %v (cache degraded, knowledge engine will crawl on every request)", err)
	} else {
		applog.Info("✅ Connected to Redis")
	}
	return client
}

func initKnowledge(cfg *config.AppConfig, cache knowledge.CacheStore) (*knowledge.Retriever, *knowledge.Ranker, *knowledge.Uploader, *knowledge.Refresher) {
	kcfg := &cfg.Knowledge

	fetcher := knowledge.NewHTTPFetcher(kcfg.FetchTimeoutSeconds)
	extractor := knowledge.NewExtractor(kcfg)
	crawler := knowledge.NewCrawler(fetcher, extractor, cache, kcfg)

	embedder := knowledge.NewHFEmbedder(knowledge.HFEmbedderConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dims:       cfg.Embedding.Dims,
		CharBudget: kcfg.EmbedCharBudget,
	})
	applog.Infof("✅ Embedder initialized (model: %s, dims: %d)", cfg.Embedding.Model, embedder.Dims())

	store := knowledge.NewEmbeddingStore(cache, embedder, kcfg)
	ranker := knowledge.NewRanker(cache, store, embedder, kcfg)
	retriever := knowledge.NewRetriever(crawler, store, ranker, cache, kcfg)
	refresher := knowledge.NewRefresher(crawler, retriever, kcfg)

	parsers := knowledge.NewParserRegistry()
	uploader := knowledge.NewUploader(parsers, store)
	applog.Infof("✅ Upload parser registry initialized (types: %s)", parsers.SupportedTypes())

	return retriever, ranker, uploader, refresher
}

func initAgents(registry *provider.Registry, cfg *config.AppConfig, retriever *knowledge.Retriever) *agents.Router {
	routerLLM := lookupProvider(registry, cfg.LLM.Router.Name)
	answerLLM := lookupProvider(registry, cfg.LLM.Answer.Name)

	mathAgent := agents.NewMathAgent()
	knowledgeAgent := agents.NewKnowledgeAgent(retriever, answerLLM, cfg.LLM.Answer.Model)
	return agents.NewRouter(routerLLM, cfg.LLM.Router.Model, mathAgent, knowledgeAgent)
}

// lookupProvider 未注册的后端返回 nil，Agent 自行降级
func lookupProvider(registry *provider.Registry, name string) provider.LLMProvider {
	p, err := registry.Get(name)
	if err != nil {
		applog.Warnf("⚠️  LLM backend %s unavailable, agent falls back to degraded mode", name)
		return nil
	}
	return p
}
