package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/config"
	"github.com/musterhq/muster/pkg/control"
	"github.com/musterhq/muster/pkg/events"
	"github.com/musterhq/muster/pkg/ingress"
	"github.com/musterhq/muster/pkg/insight"
	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/ocr"
	"github.com/musterhq/muster/pkg/orchestrator"
	"github.com/musterhq/muster/pkg/pii"
	"github.com/musterhq/muster/pkg/prompt"
	"github.com/musterhq/muster/pkg/redact"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/sweep"
	"github.com/musterhq/muster/pkg/worker"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the processing daemon",
	Long: `Run the full pipeline daemon: upload ingress, OCR, PII detection,
redaction, insight generation, the document API, and the retention
sweep.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
		File:       cfg.Log.File,
	})
	logger := log.WithComponent("server")
	metrics.SetVersion(Version)

	st, err := store.NewBoltStore(cfg.DataDir, cfg.Record.TableName)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer st.Close()
	metrics.RegisterComponent("store", true, "")

	blobs, fsStore, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	metrics.RegisterComponent("blob", true, "")

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	orch, err := buildOrchestrator(ctx, cfg, st, blobs, broker)
	if err != nil {
		return err
	}

	pool := worker.NewPool(orch, st, cfg.Worker.Count)
	if err := pool.Resume(); err != nil {
		logger.Warn().Err(err).Msg("resume scan failed, continuing with fresh uploads only")
	}
	pool.Start()
	defer pool.Stop()
	metrics.RegisterComponent("workers", true, "")

	trigger := ingress.NewTrigger(st, broker, pool, cfg.TTL())
	trigger.Start()
	defer trigger.Stop()

	// The fs backend has no bucket notifications; a filesystem watcher
	// feeds the trigger instead.
	if fsStore != nil {
		watcher, err := blob.NewWatcher(fsStore, cfg.Blob.OriginalsBucket, broker)
		if err != nil {
			return fmt.Errorf("failed to watch uploads: %w", err)
		}
		watcher.Start()
		defer watcher.Stop()
	}

	sweeper := sweep.NewSweeper(st, blobs,
		[]string{cfg.Blob.OriginalsBucket, cfg.Blob.RedactedBucket},
		broker, time.Duration(cfg.Retention.SweepIntervalHours)*time.Hour)
	sweeper.Start()
	defer sweeper.Stop()

	collector := metrics.NewCollector(st)
	collector.Start()
	defer collector.Stop()

	apiSrv := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: control.Handler(control.NewService(st, blobs, cfg.Blob.OriginalsBucket, cfg.TTL())),
	}
	go func() {
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server failed")
		}
	}()

	obsMux := http.NewServeMux()
	obsMux.Handle("/metrics", metrics.Handler())
	obsMux.HandleFunc("/health", metrics.HealthHandler())
	obsMux.HandleFunc("/ready", metrics.ReadyHandler())
	obsMux.HandleFunc("/live", metrics.LivenessHandler())
	obsSrv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: obsMux}
	go func() {
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	logger.Info().
		Str("version", Version).
		Str("api", cfg.API.ListenAddr).
		Str("metrics", cfg.Metrics.ListenAddr).
		Int("workers", cfg.Worker.Count).
		Msg("muster is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api server shutdown incomplete")
	}
	if err := obsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown incomplete")
	}
	return nil
}

// awsOptions translates configured static credentials into AWS client
// options. Empty credentials keep the default chain.
func awsOptions(cfg *config.Config) []func(*awsconfig.LoadOptions) error {
	if cfg.Blob.AccessKeyID == "" || cfg.Blob.SecretAccessKey == "" {
		return nil
	}
	return []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Blob.AccessKeyID, cfg.Blob.SecretAccessKey, "")),
	}
}

// openBlobStore selects the configured backend. The *blob.FSStore
// return is non-nil only for the fs backend, where the caller attaches
// the upload watcher.
func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, *blob.FSStore, error) {
	switch cfg.Blob.Backend {
	case "s3":
		s3, err := blob.NewS3Store(ctx, cfg.Blob.Region, awsOptions(cfg)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open s3 blob store: %w", err)
		}
		return s3, nil, nil
	case "fs":
		fs, err := blob.NewFSStore(cfg.Blob.RootDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open fs blob store: %w", err)
		}
		return fs, fs, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob backend: %q", cfg.Blob.Backend)
	}
}

func buildConverser(ctx context.Context, cfg *config.Config) (insight.Converser, func(error) bool, error) {
	switch cfg.LLM.Provider {
	case "bedrock":
		conv, err := insight.NewBedrockConverser(ctx, cfg.Blob.Region, awsOptions(cfg)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build bedrock client: %w", err)
		}
		return conv, insight.RetryableBedrock, nil
	case "anthropic":
		conv, err := insight.NewAnthropicConverser(cfg.LLM.APIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build anthropic client: %w", err)
		}
		return conv, insight.RetryableAnthropic, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider: %q", cfg.LLM.Provider)
	}
}

func buildOrchestrator(ctx context.Context, cfg *config.Config, st store.Store, blobs blob.Store, broker *events.Broker) (*orchestrator.Orchestrator, error) {
	ocrClient, err := ocr.NewTextractClient(ctx, cfg.Blob.Region, awsOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build ocr client: %w", err)
	}

	var classifier pii.Classifier
	if cfg.PII.ClassifierEnabled {
		classifier, err = pii.NewComprehendClassifier(ctx, cfg.Blob.Region, awsOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to build pii classifier: %w", err)
		}
	}

	conv, retryable, err := buildConverser(ctx, cfg)
	if err != nil {
		return nil, err
	}

	generator := insight.NewGenerator(
		prompt.NewComposer(cfg.LLM.ModelID, nil),
		conv, st, cfg.LLM.ModelID, cfg.LLM.ExtraVariants, retryable)

	return orchestrator.New(st, blobs, ocrClient,
		ocr.NewArtifactWriter(blobs, cfg.Blob.OriginalsBucket),
		pii.NewDetector(classifier, cfg.ClassifierTimeout()),
		redact.New(blobs, cfg.Blob.RedactedBucket),
		generator, broker,
		orchestrator.Options{
			PollInterval:    cfg.PollInterval(),
			OCRCeiling:      cfg.OCRPendingCeiling(),
			ExecutionBudget: cfg.ExecutionBudget(),
			MaxPages:        cfg.OCR.MaxPages,
			WarnPages:       cfg.OCR.WarnPages,
		}), nil
}
