package config

import (
	"testing"
	"time"
)

func TestFromEnvironDefaultsWhenUnset(t *testing.T) {
	opts, err := fromEnviron(nil)
	if err != nil {
		t.Fatalf("fromEnviron: %v", err)
	}
	want := Default()
	if opts.Preserve != want.Preserve || opts.ConcurrentDownloads != want.ConcurrentDownloads {
		t.Fatalf("expected defaults, got %+v", opts)
	}
}

func TestFromEnvironOverridesRecognizedVars(t *testing.T) {
	environ := []string{
		"JULIA_PKG_SERVER=https://pkg.example.test",
		"JULIA_PKG_OFFLINE=true",
		"JULIA_PKG_PRECOMPILE_AUTO=0",
		"JULIA_PKG_CONCURRENT_DOWNLOADS=4",
		"JULIA_PKG_GC_AUTO=false",
		"JULIA_PKG_IGNORE_HASHES=true",
		"UNRELATED=ignored",
	}
	opts, err := fromEnviron(environ)
	if err != nil {
		t.Fatalf("fromEnviron: %v", err)
	}
	if opts.ServerURL != "https://pkg.example.test" {
		t.Fatalf("unexpected ServerURL: %q", opts.ServerURL)
	}
	if !opts.Offline {
		t.Fatalf("expected Offline true")
	}
	if opts.PrecompileAuto {
		t.Fatalf("expected PrecompileAuto false")
	}
	if opts.ConcurrentDownloads != 4 {
		t.Fatalf("expected ConcurrentDownloads 4, got %d", opts.ConcurrentDownloads)
	}
	if opts.GCAuto {
		t.Fatalf("expected GCAuto false")
	}
	if !opts.IgnoreHashes {
		t.Fatalf("expected IgnoreHashes true")
	}
}

func TestFromEnvironRejectsNonPositiveConcurrency(t *testing.T) {
	_, err := fromEnviron([]string{"JULIA_PKG_CONCURRENT_DOWNLOADS=0"})
	if err == nil {
		t.Fatalf("expected an error for a non-positive concurrency value")
	}
}

func TestFromEnvironRejectsMalformedInteger(t *testing.T) {
	_, err := fromEnviron([]string{"JULIA_NUM_PRECOMPILE_TASKS=not-a-number"})
	if err == nil {
		t.Fatalf("expected an error for a malformed integer")
	}
}

func TestDefaultUsesPackageGCDelay(t *testing.T) {
	opts := Default()
	if opts.CollectDelay != 7*24*time.Hour {
		t.Fatalf("unexpected default CollectDelay: %v", opts.CollectDelay)
	}
}
