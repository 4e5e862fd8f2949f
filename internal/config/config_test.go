package config

import (
	"strings"
	"testing"
)

func TestValidateRejectsConcurrentQueue(t *testing.T) {
	c := &Config{}
	c.Worker.QueueConcurrency = 2

	err := c.validate()
	if err == nil {
		t.Fatal("concurrency 2 passed validation")
	}
	if !strings.Contains(err.Error(), "correlation") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDefaultsConcurrencyToOne(t *testing.T) {
	c := &Config{}
	if err := c.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Worker.QueueConcurrency != 1 {
		t.Fatalf("concurrency defaulted to %d, want 1", c.Worker.QueueConcurrency)
	}
}

func TestValidateArtifactBackend(t *testing.T) {
	for _, backend := range []string{"", "fs", "s3"} {
		c := &Config{}
		c.Artifacts.Backend = backend
		if err := c.validate(); err != nil {
			t.Fatalf("backend %q rejected: %v", backend, err)
		}
	}

	c := &Config{}
	c.Artifacts.Backend = "ftp"
	if err := c.validate(); err == nil {
		t.Fatal("backend ftp passed validation")
	}
}
