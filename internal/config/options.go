// Package config holds the process-wide Options struct and its environment
// variable population (spec.md §6, §9's "Config-object rewrites" design
// note): a single struct threaded through components A-F rather than each
// one reaching into os.Getenv on its own, generalizing the teacher's own
// flags-to-struct population (golang-dep/flags.go, cmd/dep/*.go) from
// command-line flags to environment variables.
package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/artifact"
	"github.com/depotpm/depot/internal/gc"
	"github.com/depotpm/depot/internal/resolve"
)

// Options is the process-wide configuration struct threaded through every
// command (spec.md §9). It is populated once at startup from the recognized
// environment variable subset in spec.md §6, then the root command's
// --verbose, --reresolve and --preserve flags overwrite the matching fields
// before any subcommand runs.
type Options struct {
	// Preserve is the resolver's starting preservation tier (spec.md §4.C);
	// the root command's --preserve flag overrides it.
	Preserve resolve.PreserveLevel

	// Platform is the host platform artifacts are selected against
	// (component E). Defaults to the running process's GOOS/GOARCH.
	Platform artifact.Platform

	// ServerURL is JULIA_PKG_SERVER: the base URL of the package server.
	// Empty disables server lookups entirely (registry/artifact network
	// paths fall back to direct git/tarball URLs only).
	ServerURL string

	// DevDir is JULIA_PKG_DEVDIR: the default location for shared develop
	// clones.
	DevDir string

	// Offline is JULIA_PKG_OFFLINE: forbids all network access when true.
	Offline bool

	// PrecompileAuto is JULIA_PKG_PRECOMPILE_AUTO: false suppresses the
	// post-install precompile step.
	PrecompileAuto bool

	// PrecompileTasks is JULIA_NUM_PRECOMPILE_TASKS: worker count for
	// precompile. Zero means "use the runtime default" (GOMAXPROCS).
	PrecompileTasks int

	// ConcurrentDownloads is JULIA_PKG_CONCURRENT_DOWNLOADS: the installer's
	// worker count (internal/store.InstallAll's concurrency argument).
	ConcurrentDownloads int

	// GCAuto is JULIA_PKG_GC_AUTO: false disables opportunistic GC sweeps
	// a command would otherwise trigger after a successful instantiate.
	GCAuto bool

	// IgnoreHashes is JULIA_PKG_IGNORE_HASHES: downgrades a tree-hash
	// mismatch from a fatal IntegrityError to a warning (spec.md §7).
	IgnoreHashes bool

	// Verbose toggles debug-level logging; set by the CLI's -v/--verbose
	// flag, not an environment variable.
	Verbose bool

	// AllowReresolve lets a command fall back to the other PreserveLevels
	// when the requested one reports a ResolverConflict, trying each
	// tier in order until one succeeds or all are exhausted (spec.md §4.C).
	AllowReresolve bool

	// CollectDelay overrides gc.DefaultCollectDelay; zero uses the default.
	CollectDelay time.Duration
}

// Default returns an Options with the same baseline values the teacher's
// own zero-value Ctx effectively assumes: the tiered-installed preservation
// tier, resolve GC
// delay and precompile tasks to their package defaults, and target the
// running process's own platform.
func Default() Options {
	return Options{
		Preserve:            resolve.PreserveTieredInstalled,
		Platform:            hostPlatform(),
		PrecompileAuto:      true,
		ConcurrentDownloads: 8,
		GCAuto:              true,
		CollectDelay:        gc.DefaultCollectDelay,
	}
}

func hostPlatform() artifact.Platform {
	return artifact.Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// FromEnviron populates Options from the recognized environment variable
// subset (spec.md §6), starting from Default() and overriding only the
// variables that are actually set. Malformed values for variables that
// require a specific shape (integers) are reported as errors rather than
// silently ignored, since a config value a user explicitly set but depot
// misparses is exactly the kind of silent-wrong-behavior spec.md's error
// taxonomy exists to avoid.
func FromEnviron() (Options, error) {
	return fromEnviron(os.Environ())
}

func fromEnviron(environ []string) (Options, error) {
	opts := Default()
	lookup := buildEnvMap(environ)

	if v, ok := lookup["JULIA_PKG_SERVER"]; ok {
		opts.ServerURL = v
	}
	if v, ok := lookup["JULIA_PKG_DEVDIR"]; ok {
		opts.DevDir = v
	}
	if v, ok := lookup["JULIA_PKG_OFFLINE"]; ok {
		opts.Offline = v == "true"
	}
	if v, ok := lookup["JULIA_PKG_PRECOMPILE_AUTO"]; ok {
		opts.PrecompileAuto = v != "0"
	}
	if v, ok := lookup["JULIA_NUM_PRECOMPILE_TASKS"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Options{}, errors.Wrap(err, "parsing JULIA_NUM_PRECOMPILE_TASKS")
		}
		opts.PrecompileTasks = n
	}
	if v, ok := lookup["JULIA_PKG_CONCURRENT_DOWNLOADS"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Options{}, errors.Wrap(err, "parsing JULIA_PKG_CONCURRENT_DOWNLOADS")
		}
		if n <= 0 {
			return Options{}, errors.New("JULIA_PKG_CONCURRENT_DOWNLOADS must be a positive integer")
		}
		opts.ConcurrentDownloads = n
	}
	if v, ok := lookup["JULIA_PKG_GC_AUTO"]; ok {
		opts.GCAuto = v != "false"
	}
	if v, ok := lookup["JULIA_PKG_IGNORE_HASHES"]; ok {
		opts.IgnoreHashes = v == "true"
	}

	return opts, nil
}

func buildEnvMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				m[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return m
}
