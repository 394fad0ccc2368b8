package store

import (
	"context"
	"testing"

	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
)

func TestNewR2Store_UnconfiguredIsInert(t *testing.T) {
	s, err := NewR2Store(context.Background(), config.RemoteConfig{})
	if err != nil {
		t.Fatalf("NewR2Store failed: %v", err)
	}
	if s.IsConfigured() {
		t.Fatal("expected unconfigured adapter")
	}

	ctx := context.Background()
	if err := s.Put(ctx, "k", []byte("v")); err == nil {
		t.Error("Put on unconfigured store should fail")
	}
	if _, _, err := s.Get(ctx, "k"); err == nil {
		t.Error("Get on unconfigured store should fail")
	}
	if _, err := s.List(ctx, ""); err == nil {
		t.Error("List on unconfigured store should fail")
	}
	if _, err := s.Exists(ctx, "k"); err == nil {
		t.Error("Exists on unconfigured store should fail")
	}
}

func TestNewR2Store_ConfiguredBuildsClient(t *testing.T) {
	cfg := config.RemoteConfig{
		Bucket:          "state-bucket",
		Endpoint:        "https://account.r2.cloudflarestorage.com",
		AccessKeyID:     "AKIA123",
		SecretAccessKey: "secret",
		Prefix:          "agents/alpha",
	}

	s, err := NewR2Store(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewR2Store failed: %v", err)
	}
	if !s.IsConfigured() {
		t.Fatal("expected configured adapter")
	}
	if s.bucket != "state-bucket" {
		t.Errorf("bucket = %q", s.bucket)
	}
	if s.prefix != "agents/alpha/" {
		t.Errorf("prefix should gain trailing slash, got %q", s.prefix)
	}
}
