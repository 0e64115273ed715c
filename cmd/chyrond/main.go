// chyrond is the background daemon: it polls the catalog for uploaded
// videos and drives each one through the processing pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"chyron/internal/blob"
	"chyron/internal/catalog"
	"chyron/internal/chunking"
	"chyron/internal/config"
	"chyron/internal/daemon"
	"chyron/internal/logging"
	"chyron/internal/pipeline"
	"chyron/internal/services/openai"
	"chyron/internal/services/whisper"
	"chyron/internal/services/ytdlp"
	"chyron/internal/stages"
	"chyron/internal/vectorindex"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}

	blobs, err := blob.NewStore(cfg.MediaDir())
	if err != nil {
		log.Fatalf("open blob store: %v", err)
	}

	embedder, err := openai.New(cfg.OpenAI)
	if err != nil {
		log.Fatalf("init openai client: %v", err)
	}

	index, err := vectorindex.New(ctx, cfg)
	if err != nil {
		log.Fatalf("connect vector index: %v", err)
	}
	defer index.Close()

	manager, err := pipeline.NewManager(cfg, store, logger,
		stages.NewAcquire(store, blobs, ytdlp.New(cfg.Sources), logger),
		stages.NewTranscribe(store, blobs, whisper.NewClient(cfg.Transcriber), logger),
		stages.NewChunkTranscript(store, chunking.Options{
			ChunkSize:    cfg.Chunking.ChunkSize,
			ChunkOverlap: cfg.Chunking.ChunkOverlap,
		}, logger),
		stages.NewEmbed(store, embedder, index, embedder.EmbeddingModel(), logger),
	)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("chyrond shutting down")
}
