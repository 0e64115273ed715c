package config

import (
	"errors"
	"fmt"
	"strings"
)

var validVectorBackends = map[string]struct{}{
	"memory":   {},
	"pgvector": {},
	"milvus":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateVectorIndex(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be at least 1")
	}
	if c.Workflow.QueuePollInterval < 1 {
		return errors.New("workflow.queue_poll_interval must be at least 1 second")
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.ChunkSize < 1 {
		return errors.New("chunking.chunk_size must be a positive token budget")
	}
	if c.Chunking.ChunkOverlap < 0 {
		return errors.New("chunking.chunk_overlap must not be negative")
	}
	return nil
}

func (c *Config) validateVectorIndex() error {
	if _, ok := validVectorBackends[c.VectorIndex.Backend]; !ok {
		return fmt.Errorf("vector_index.backend: unsupported value %q (expected memory, pgvector, or milvus)", c.VectorIndex.Backend)
	}
	if c.VectorIndex.Backend == "pgvector" && strings.TrimSpace(c.VectorIndex.PostgresDSN) == "" {
		return errors.New("vector_index.postgres_dsn must be set when vector_index.backend is pgvector")
	}
	if c.VectorIndex.Backend == "milvus" && strings.TrimSpace(c.VectorIndex.MilvusAddr) == "" {
		return errors.New("vector_index.milvus_addr must be set when vector_index.backend is milvus")
	}
	if c.VectorIndex.Dimensions < 1 {
		return errors.New("vector_index.dimensions must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
