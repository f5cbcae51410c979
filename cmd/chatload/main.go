// Command chatload scrapes a player's EVE Online chat logs for
// character names active in each channel and uploads the resulting
// reports to a configurable set of remote collectors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lbloecher/chatload/internal/config"
	"github.com/lbloecher/chatload/internal/constants"
	"github.com/lbloecher/chatload/internal/dlog"
	cherrors "github.com/lbloecher/chatload/internal/errors"
	"github.com/lbloecher/chatload/internal/format"
	"github.com/lbloecher/chatload/internal/io/signal"
	"github.com/lbloecher/chatload/internal/logreader"
	"github.com/lbloecher/chatload/internal/pipeline"
	"github.com/lbloecher/chatload/internal/regex"
	"github.com/lbloecher/chatload/internal/tlswriter"
	"github.com/lbloecher/chatload/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := config.Default()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		return 1
	}

	var displayVersion bool
	var hostsStr string
	var regexStr string
	var logLevel string

	flag.BoolVar(&displayVersion, "version", false, "Display version")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Print every file read")
	flag.BoolVar(&opts.UseCache, "useCache", opts.UseCache, "Skip files unchanged since the last run")
	flag.BoolVar(&opts.InsecureTLS, "insecureTLS", false, "Skip TLS certificate and hostname verification for every host")
	flag.StringVar(&opts.LogDir, "logDir", opts.LogDir, "Directory to scan for chat logs")
	flag.StringVar(&opts.CachePath, "cachePath", opts.CachePath, "Filename write-time cache path")
	flag.StringVar(&regexStr, "regex", config.DefaultFilenameRegex, "Filename filter regex")
	flag.StringVar(&hostsStr, "hosts", "", "Comma-separated host[:port] list, default "+config.DefaultHostName)
	flag.StringVar(&opts.CAFile, "caFile", "", "Extra trusted CA certificate file (PEM)")
	flag.StringVar(&opts.CAPath, "caPath", "", "Extra trusted CA certificate directory (PEM files)")
	flag.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Per-host write/read deadline")
	flag.StringVar(&logLevel, "logLevel", "info", "Log level: trace, debug, info, warn, error")

	flag.Parse()
	opts = config.ApplyEnv(opts)

	if displayVersion {
		version.PrintAndExit()
	}

	dlog.Pipeline.SetLevel(dlog.ParseLevel(logLevel))
	dlog.Reader.SetLevel(dlog.ParseLevel(logLevel))
	dlog.Writer.SetLevel(dlog.ParseLevel(logLevel))
	dlog.Parser.SetLevel(dlog.ParseLevel(logLevel))

	pattern, err := regex.New(regexStr, regex.Default)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: invalid -regex:", err)
		return 1
	}
	opts.FilenameRegex = pattern

	if hostsStr != "" {
		hosts, err := parseHosts(hostsStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			return 1
		}
		opts.Hosts = hosts
	}

	fmt.Println("This app scrapes your EVE Online chat logs for character names and")
	fmt.Println("adds them to a configurable set of remote databases")
	fmt.Println()

	ctx, cancel := signal.NotifyCancel(context.Background())
	defer cancel()

	fmt.Println("Reading files...")
	p := pipeline.New(opts)
	stats, err := p.Run(ctx, progressPrinter(opts.Verbose))

	fmt.Printf("Total of %d files with a size of %s processed within %s\n",
		stats.Reader.FilesRead, format.FormatSize(stats.Reader.BytesRead), format.FormatDuration(stats.Reader.Duration))

	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		return 1
	}

	return reportHostResults(stats)
}

func progressPrinter(verbose bool) func(logreader.FileInfo) {
	if !verbose {
		return nil
	}
	return func(f logreader.FileInfo) {
		unit := "bytes"
		if f.Size == 1 {
			unit = "byte"
		}
		fmt.Printf("%s (%d %s)\n", f.Name, f.Size, unit)
	}
}

func reportHostResults(stats pipeline.Stats) int {
	errHosts := 0
	failures := cherrors.NewMultiError()
	for _, h := range stats.Hosts {
		if h.Err == nil {
			continue
		}
		errHosts++
		addr := h.Host.Name
		if h.Host.Port != strconv.Itoa(constants.DefaultTLSPort) {
			addr += ":" + h.Host.Port
		}
		fmt.Fprintf(os.Stderr, "ERROR (%s): %v\n", addr, h.Err)
		failures.Add(cherrors.Wrapf(h.Err, "host %s", addr))
	}
	if errHosts > 1 {
		dlog.Writer.Error(failures.Error())
	}

	dur := format.FormatDuration(stats.Duration)
	if errHosts < len(stats.Hosts) {
		sent := format.FormatSize(stats.CompressedBytes)
		fmt.Printf("Uploaded %d character names (%s) successfully to %d remote hosts within %s\n",
			stats.Reports, sent, len(stats.Hosts)-errHosts, dur)
	} else if len(stats.Hosts) > 0 {
		fmt.Printf("All %d uploads failed within %s\n", len(stats.Hosts), dur)
	}

	if errHosts > 0 {
		return 1
	}
	return 0
}

func parseHosts(spec string) ([]tlswriter.Host, error) {
	parts := strings.Split(spec, ",")
	hosts := make([]tlswriter.Host, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, port := part, strconv.Itoa(constants.DefaultTLSPort)
		if idx := strings.LastIndex(part, ":"); idx >= 0 {
			name, port = part[:idx], part[idx+1:]
		}
		if _, err := strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("invalid port in host %q: %w", part, err)
		}

		hosts = append(hosts, tlswriter.Host{Name: name, Port: port})
	}

	if len(hosts) == 0 {
		return nil, fmt.Errorf("-hosts given but no valid host found in %q", spec)
	}
	return hosts, nil
}
