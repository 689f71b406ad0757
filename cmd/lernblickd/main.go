package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/lernblick/lernblick/internal/analysis"
	"github.com/lernblick/lernblick/internal/async"
	"github.com/lernblick/lernblick/internal/common"
	"github.com/lernblick/lernblick/internal/evidence"
	"github.com/lernblick/lernblick/internal/pipeline"
	"github.com/lernblick/lernblick/internal/provider"
	"github.com/lernblick/lernblick/internal/provider/anthropic"
	"github.com/lernblick/lernblick/internal/provider/gemini"
	"github.com/lernblick/lernblick/internal/provider/openai"
	repo "github.com/lernblick/lernblick/internal/repository"
	"github.com/lernblick/lernblick/internal/textextract"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	addr := cfg.Server.GRPCAddr
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	uploadsRepo := repo.NewUploadRepository(pool, logger)
	resultsRepo := repo.NewResultRepository(pool, logger)

	// OCR cascade: cloud primary, local fallback.
	visionEngine := textextract.NewVisionEngine(textextract.VisionConfig{
		APIKey:    cfg.OCR.VisionAPIKey,
		Languages: cfg.OCR.Languages,
	}, logger)
	tessEngine := textextract.NewTesseractEngine(textextract.TesseractConfig{
		Languages:          cfg.OCR.Languages,
		TerminationTimeout: cfg.OCR.TerminationTimeout,
	}, logger)
	resolver := textextract.NewResolver(visionEngine, tessEngine, textextract.ResolverConfig{
		FallbackThreshold: cfg.OCR.FallbackThreshold,
		FallbackTimeout:   cfg.OCR.FallbackTimeout,
	}, logger)

	extractor := evidence.NewExtractor(evidence.Config{
		CropTimeout: cfg.OCR.CropTimeout,
	}, evidence.ReaderFunc(tessEngine.RecognizeCrop), logger)

	providers := buildProviders(cfg.Providers, logger)
	orchestrator := analysis.NewOrchestrator(providers, cfg.Providers.Timeout, logger)

	processor := pipeline.NewProcessor(logger, extractor, resolver, orchestrator, uploadsRepo, resultsRepo, cfg.Analysis)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(6),
		async.WithQueueSize(512),
		async.WithProcessTimeout(3*time.Minute),
	)

	// Job producer: uploads arrive in the table as status=uploaded and the
	// poller claims them onto the worker pool.
	poller := async.NewPoller(uploadsRepo, queue, logger,
		async.WithPollInterval(5*time.Second),
		async.WithBatchSize(32),
	)
	go poller.Run(ctx)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("lernblickd listening",
		"addr", addr,
		"providers", cfg.Providers.EnabledProviders(),
	)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	queue.Shutdown(context.Background())
	grpcServer.GracefulStop()
}

func buildProviders(cfg common.ProvidersConfig, logger *slog.Logger) []provider.Analyzer {
	var out []provider.Analyzer
	if cfg.OpenAIEnabled {
		out = append(out, openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		}, logger))
	}
	if cfg.GeminiEnabled {
		out = append(out, gemini.NewClient(cfg.GeminiKey, cfg.GeminiModel, logger))
	}
	if cfg.AnthropicEnabled {
		out = append(out, anthropic.NewClient(cfg.AnthropicKey, cfg.AnthropicModel, logger))
	}
	return out
}
