package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"ragchat/internal/chat"
	"ragchat/internal/completion"
	geminicompletion "ragchat/internal/completion/gemini"
	openaicompletion "ragchat/internal/completion/openai"
	"ragchat/internal/config"
	"ragchat/internal/embedding"
	geminiembedding "ragchat/internal/embedding/gemini"
	openaiembedding "ragchat/internal/embedding/openai"
	"ragchat/internal/embedding/tfidf"
	"ragchat/internal/extract"
	"ragchat/internal/service"
	"ragchat/internal/summarizer"
	"ragchat/internal/transcript"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/memory"
	"ragchat/internal/vectorstore/qdrant"
)

type app struct {
	session *chat.Session
	summary string
	sink    *transcript.RedisSink
}

func (a *app) Close() {
	if a.sink != nil {
		_ = a.sink.Close()
	}
}

// newApp assembles the retriever, completer and session described by cfg.
// A non-empty resume id continues an archived session and requires a transcript store.
func newApp(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, resume string) (*app, error) {
	if resume != "" && cfg.Transcript.Redis == nil {
		return nil, fmt.Errorf("--resume needs transcript.redis to be configured")
	}
	emb, err := newEmbedder(ctx, cfg.Embedder)
	if err != nil {
		return nil, err
	}
	builder, err := newIndexBuilder(cfg.VectorStore)
	if err != nil {
		return nil, err
	}

	retriever, err := service.NewKnowledgeRetriever(ctx, cfg.Documents, service.Options{
		Extractors:   extract.DefaultRegistry(),
		Embedder:     emb,
		IndexBuilder: builder,
		ChunkSize:    cfg.Chunker.ChunkSize,
		Logger:       logger.Named("retriever"),
	})
	if err != nil {
		return nil, fmt.Errorf("build knowledge base: %w", err)
	}
	logger.Info("knowledge base ready", zap.Int("chunks", retriever.Len()), zap.String("embedder", emb.Name()))

	completer, err := newCompleter(ctx, cfg.Completion)
	if err != nil {
		return nil, err
	}

	a := &app{summary: summarize(retriever.Corpus().Chunks)}
	opts := chat.Options{
		Completer:     completer,
		Model:         cfg.Completion.Model,
		SystemMessage: cfg.Session.SystemMessage,
		Retriever:     retriever,
		TopK:          cfg.Retrieval.TopK,
		Generation: chat.GenerationConfig{
			Temperature: cfg.Completion.Temperature,
			MaxTokens:   cfg.Completion.MaxTokens,
			Stop:        cfg.Completion.Stop,
		},
		Logger: logger.Named("chat"),
	}
	if r := cfg.Transcript.Redis; r != nil {
		sink, err := transcript.NewRedisSink(ctx, transcript.RedisConfig{
			Addr:     r.Addr,
			Password: envOrEmpty(r.PasswordEnv),
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      time.Duration(r.TTLSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("connect transcript store: %w", err)
		}
		a.sink = sink
		opts.Transcript = sink
	}
	if resume != "" {
		history, ok, err := a.sink.Load(ctx, resume)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load transcript %s: %w", resume, err)
		}
		if !ok {
			a.Close()
			return nil, fmt.Errorf("no transcript stored for session %s", resume)
		}
		opts.SessionID = resume
		opts.History = history
		logger.Info("resuming session", zap.String("session", resume), zap.Int("messages", len(history)))
	}

	a.session, err = chat.NewSession(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("session started", zap.String("session", a.session.ID()), zap.String("model", a.session.Model()))
	return a, nil
}

func newEmbedder(ctx context.Context, cfg config.EmbedderConfig) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch cfg.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		client, err := openaiembedding.NewClient(openaiembedding.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Timeout:     time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize:   cfg.OpenAI.BatchSize,
			Concurrency: cfg.OpenAI.Concurrency,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		emb = client
	case "gemini":
		e, err := geminiembedding.NewEmbedder(ctx, geminiembedding.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Model:     cfg.Gemini.Model,
			BaseURL:   cfg.Gemini.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		emb = e
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.CacheSize > 0 {
		emb = embedding.WithLRUCache(emb, cfg.CacheSize, time.Duration(cfg.CacheTTLSecs)*time.Second)
	}
	return emb, nil
}

func newIndexBuilder(cfg config.VectorStoreConfig) (vectorstore.Builder, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.Builder, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.Builder(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     envOrEmpty(cfg.Qdrant.APIKeyEnv),
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func newCompleter(ctx context.Context, cfg config.CompletionConfig) (completion.Completer, error) {
	switch cfg.Provider {
	case "openai", "":
		c, err := openaicompletion.NewClient(openaicompletion.Config{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("completion client: %w", err)
		}
		return c, nil
	case "gemini":
		c, err := geminicompletion.NewClient(ctx, geminicompletion.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			BaseURL:   cfg.Gemini.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}

func summarize(chunks []string) string {
	if len(chunks) == 0 {
		return "No documents loaded."
	}
	return summarizer.NewFrequencySummarizer().Summarize(strings.Join(chunks, " "), summarizer.DefaultMaxSentences)
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
