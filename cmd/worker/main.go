// Command worker is the worker fleet's entrypoint: load config, build
// collaborators (queue, proxy pool, fetcher, extractor, sink), then run the
// orchestrator until a shutdown signal arrives, adapted from the teacher's
// cmd/main.go (config load, collaborator wiring, fatal-on-setup-error).
package main

import (
	"context"
	"net/url"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rhan/realtor-worker-fleet/config"
	"github.com/rhan/realtor-worker-fleet/internal/batchsink"
	"github.com/rhan/realtor-worker-fleet/internal/extractor"
	"github.com/rhan/realtor-worker-fleet/internal/fetcher"
	"github.com/rhan/realtor-worker-fleet/internal/fingerprint"
	"github.com/rhan/realtor-worker-fleet/internal/insights"
	"github.com/rhan/realtor-worker-fleet/internal/llmclient"
	"github.com/rhan/realtor-worker-fleet/internal/logging"
	"github.com/rhan/realtor-worker-fleet/internal/orchestrator"
	"github.com/rhan/realtor-worker-fleet/internal/proxypool"
	"github.com/rhan/realtor-worker-fleet/internal/queueclient"
)

// siteHost is the listings site the fetcher/extractor are grounded on
// (spec.md §4.4's discovery hostname check).
const siteHost = "realtor.com"

func main() {
	// A missing .env is not an error: production runs take config from the
	// real environment, the way the teacher's cmd/main.go leaves os.Getenv
	// untouched when no .env file is present.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("worker: config")
	}
	logging.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Queue.Region))
	if err != nil {
		log.Fatal().Err(err).Msg("worker: load aws config")
	}

	queue := queueclient.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.Queue.URL)
	uploader := &batchsink.S3Uploader{Client: s3.NewFromConfig(awsCfg)}

	var pgMirror batchsink.Mirror
	if cfg.PostgresDSN != "" {
		pg, err := batchsink.NewPostgresMirror(cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("worker: postgres mirror")
		}
		defer pg.Close()
		pgMirror = pg
	}

	insightsCollector := insights.NewCollector()
	mirror := batchsink.NewMultiMirror(pgMirror, insightsCollector)

	sink := batchsink.New(batchsink.Config{
		Bucket:        cfg.Storage.Bucket,
		PrefixRecords: cfg.Storage.PrefixRecords,
		Codec:         cfg.Storage.CompressCodec,
		BufferMax:     cfg.Batch.Max,
		FlushAfter:    cfg.Batch.FlushAfter,
	}, uploader, mirror)

	var llm llmclient.Client = llmclient.NoopClient{}
	if cfg.LLM.APIKey != "" {
		llm = llmclient.NewOpenAICompatProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	}

	orch := orchestrator.New(
		orchestrator.Config{
			MaxConcurrency:  cfg.Concurrency.MaxConcurrency,
			SiteHost:        siteHost,
			WaitTimeSeconds: cfg.Queue.WaitTimeSeconds,
			VisibilityS:     cfg.Queue.VisibilityS,
			IdleSleep:       cfg.Queue.IdleSleep,
			RequestTimeout:  cfg.Fetch.TimeoutS,
		},
		queue,
		proxyPool(cfg.Proxy.BaseURL),
		fingerprint.NewBuilder(fingerprint.DefaultUserAgents()),
		fetcher.NewClient(cfg.Fetch.RetryLimit),
		extractor.New(llm),
		sink,
	)

	log.Info().
		Int("max_concurrency", cfg.Concurrency.MaxConcurrency).
		Str("queue", cfg.Queue.URL).
		Str("bucket", cfg.Storage.Bucket).
		Bool("proxy_configured", cfg.Proxy.BaseURL != "").
		Bool("llm_configured", cfg.LLM.APIKey != "").
		Msg("worker: starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sink.Run(gctx) })
	g.Go(func() error { return orch.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Msg("worker: loop exited")
	}
	insights.Print(insightsCollector.Records())
	log.Info().Msg("worker: stopped")
}

// proxyPool builds a single-gateway pool from baseURL, validating it parses
// as a URL before handing it to the fetcher (an unparsable PROXY_URL is
// treated the same as none configured: direct requests, logged once).
func proxyPool(baseURL string) *proxypool.Pool {
	if baseURL == "" {
		return proxypool.NewPool("")
	}
	if _, err := url.Parse(baseURL); err != nil {
		log.Warn().Err(err).Str("proxy_url", baseURL).Msg("worker: PROXY_URL unparsable, running direct")
		return proxypool.NewPool("")
	}
	return proxypool.NewPool(baseURL)
}
