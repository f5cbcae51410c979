// Package config builds the Options value the pipeline is constructed
// from: log directory, filename cache, host list, and TLS settings,
// each defaulted the way a desktop client's config layer would default
// them and overridable via CHATLOAD_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/lbloecher/chatload/internal/constants"
	"github.com/lbloecher/chatload/internal/regex"
	"github.com/lbloecher/chatload/internal/tlswriter"
)

const (
	// DefaultFilenameRegex matches every filename; callers narrow it to
	// the game's own chat-log naming convention when they have it.
	DefaultFilenameRegex = ".*"

	// DefaultHostName is the collector this client ships to when the
	// user configures no host of their own.
	DefaultHostName = "chatload.bloecher.dev"
)

// Options is the fully-resolved configuration the pipeline is built
// from. It is produced by Default, which applies defaults, and ApplyEnv,
// which applies environment overrides; a command-line layer sits above
// this package and is out of scope here.
type Options struct {
	LogDir        string
	CachePath     string
	UseCache      bool
	FilenameRegex regex.Regex
	Verbose       bool

	Hosts       []tlswriter.Host
	InsecureTLS bool
	CAFile      string
	CAPath      string

	Timeout time.Duration
}

// Default returns the Options a bare install would use: the platform
// default log directory and cache path, the default collector host
// over a verified TLS connection, and the library's own default
// writer timeout.
func Default() (Options, error) {
	logDir, err := defaultLogDir()
	if err != nil {
		return Options{}, fmt.Errorf("config: resolve default log_dir: %w", err)
	}

	cachePath, err := defaultCachePath()
	if err != nil {
		return Options{}, fmt.Errorf("config: resolve default cache_path: %w", err)
	}

	pattern, err := regex.New(DefaultFilenameRegex, regex.Default)
	if err != nil {
		return Options{}, fmt.Errorf("config: compile default filename_regex: %w", err)
	}

	return Options{
		LogDir:        logDir,
		CachePath:     cachePath,
		UseCache:      true,
		FilenameRegex: pattern,
		Hosts: []tlswriter.Host{
			{Name: DefaultHostName, Port: fmt.Sprintf("%d", constants.DefaultTLSPort)},
		},
		Timeout: constants.DefaultWriterTimeout,
	}, nil
}

// ApplyEnv overrides fields of opts from CHATLOAD_-prefixed environment
// variables, for users who prefer env configuration over flags.
func ApplyEnv(opts Options) Options {
	opts.LogDir = EnvOrDefault("CHATLOAD_LOG_DIR", opts.LogDir)
	opts.CachePath = EnvOrDefault("CHATLOAD_CACHE_PATH", opts.CachePath)
	if Env("CHATLOAD_INSECURE_TLS") {
		opts.InsecureTLS = true
	}
	opts.CAFile = EnvOrDefault("CHATLOAD_CA_FILE", opts.CAFile)
	opts.CAPath = EnvOrDefault("CHATLOAD_CA_PATH", opts.CAPath)
	return opts
}

// defaultLogDir returns the platform convention for where this game
// stores its chat logs, per spec: "Documents/EVE/logs/Chatlogs".
func defaultLogDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "Documents", "EVE", "logs", "Chatlogs"), nil
	}
	return filepath.Join(home, "Documents", "EVE", "logs", "Chatlogs"), nil
}

// defaultCachePath returns <platform cache dir>/chatload/filecache.tsv.
func defaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatload", "filecache.tsv"), nil
}
