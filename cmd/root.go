// Package cmd wires up the CLI flags and dispatches to the gosock core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"gosock/config"
	"gosock/internal/core"
	"gosock/internal/metrics"
	"gosock/internal/sockaddr"
	"gosock/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gosock/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// flagValues holds raw flag input; only flags the user set are applied
// on top of the file and environment layers.
type flagValues struct {
	listen, probe, dryRun bool
	sockets, udp, sctp    []string
	udpMulticast          []string
	udpBroadcast          []string
	backlog               int
	abstract              bool
	chmod                 string
	noDeferAccept         bool
	socketTimeoutSec      int
	timeoutSec            int
	async                 bool
	retries               int
	configPath            string
	exec                  string
	metricsAddr           string
	verbose               int
}

// Execute parses args and runs the selected gosock mode.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, stdout io.Writer) error {
	var fv flagValues
	fs := flag.NewFlagSet("gosock", flag.ContinueOnError)

	// ── mode ─────────────────────────────────────────────────────
	fs.BoolVarP(&fv.listen, "listen", "l", false, "Serve the configured sockets")
	fs.BoolVarP(&fv.probe, "probe", "z", false, "Probe targets and report which accept connections")
	fs.BoolVar(&fv.dryRun, "dry-run", false, "Print the resolved configuration and exit")

	// ── listeners ────────────────────────────────────────────────
	fs.StringArrayVarP(&fv.sockets, "socket", "s", nil, "Stream socket: path, @name, :port, host:port, host*:port")
	fs.StringArrayVar(&fv.udp, "udp", nil, "UDP socket host:port")
	fs.StringArrayVar(&fv.udpMulticast, "udp-multicast", nil, "UDP multicast group:port")
	fs.StringArrayVar(&fv.udpBroadcast, "udp-broadcast", nil, "UDP broadcast receiver :port")
	fs.StringArrayVar(&fv.sctp, "sctp", nil, "SCTP socket addr1,addr2,...:port")
	fs.IntVarP(&fv.backlog, "listen-backlog", "q", config.DefaultBacklog, "listen(2) backlog")
	fs.BoolVar(&fv.abstract, "abstract-socket", false, "Put Unix socket names in the abstract namespace")
	fs.StringVar(&fv.chmod, "chmod-socket", "", "chmod Unix socket paths (default 666, or an octal MODE)")
	fs.Lookup("chmod-socket").NoOptDefVal = config.ChmodDefault
	fs.BoolVar(&fv.noDeferAccept, "no-defer-accept", false, "Disable deferred accept on TCP listeners")
	fs.IntVar(&fv.socketTimeoutSec, "socket-timeout", int(config.DefaultSocketTimeout/time.Second), "Deferred accept window in seconds")
	fs.StringVarP(&fv.exec, "exec", "e", "", "Run a shell command per connection with the socket as stdio")

	// ── outbound ─────────────────────────────────────────────────
	fs.IntVarP(&fv.timeoutSec, "timeout", "w", int(config.DefaultConnectTimeout/time.Second), "Connect timeout in seconds")
	fs.BoolVar(&fv.async, "async", false, "Do not wait for connects to complete")
	fs.IntVar(&fv.retries, "retries", 0, "Retry refused or timed out connects")

	// ── ambient ──────────────────────────────────────────────────
	fs.StringVarP(&fv.configPath, "config", "c", "", "TOML configuration file")
	fs.StringVar(&fv.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on host:port")
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "gosock %s\n", version)
		return nil
	}

	// ── layer: defaults < file < env < flags ─────────────────────
	cfg := config.Default()
	path := fv.configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)
	if err := applyFlags(cfg, fs, &fv); err != nil {
		return err
	}
	cfg.ConfigPath = path

	// ── positional arguments ─────────────────────────────────────
	if cfg.Listen {
		cfg.AddSockets(sockaddr.ProtoStream, false, false, fs.Args()...)
	} else {
		cfg.Targets = append(cfg.Targets, fs.Args()...)
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if fv.dryRun {
		return printConfig(stdout, cfg)
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetTimestamps(cfg.Listen)

	mode, err := core.Build(cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// applyFlags copies the flags the user set onto cfg.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, fv *flagValues) error {
	set := fs.Changed
	if set("listen") {
		cfg.Listen = fv.listen
	}
	if set("probe") {
		cfg.Probe = fv.probe
	}
	cfg.DryRun = fv.dryRun

	cfg.AddSockets(sockaddr.ProtoStream, false, false, fv.sockets...)
	cfg.AddSockets(sockaddr.ProtoUDP, false, false, fv.udp...)
	cfg.AddSockets(sockaddr.ProtoUDP, true, false, fv.udpMulticast...)
	cfg.AddSockets(sockaddr.ProtoUDP, false, true, fv.udpBroadcast...)
	cfg.AddSockets(sockaddr.ProtoSCTP, false, false, fv.sctp...)

	if set("listen-backlog") {
		cfg.Backlog = fv.backlog
	}
	if set("abstract-socket") {
		cfg.AbstractSocket = fv.abstract
	}
	if set("chmod-socket") {
		on, mode, err := config.ParseChmod(fv.chmod)
		if err != nil {
			return err
		}
		cfg.ChmodSocket, cfg.ChmodMode = on, mode
	}
	if set("no-defer-accept") {
		cfg.NoDeferAccept = fv.noDeferAccept
	}
	if set("socket-timeout") {
		cfg.SocketTimeout = time.Duration(fv.socketTimeoutSec) * time.Second
	}
	if set("exec") {
		cfg.Exec = fv.exec
	}
	if set("timeout") {
		cfg.Timeout = time.Duration(fv.timeoutSec) * time.Second
	}
	if set("async") {
		cfg.Async = fv.async
	}
	if set("retries") {
		cfg.Retries = fv.retries
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = fv.metricsAddr
	}
	if set("verbose") {
		cfg.Verbose += fv.verbose
	}
	return nil
}

// printConfig writes the resolved configuration for --dry-run.
func printConfig(w io.Writer, cfg *config.Config) error {
	switch {
	case cfg.Listen:
		specs, err := cfg.Specs()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "mode: serve (backlog %d)\n", cfg.Backlog)
		for i, s := range specs {
			fmt.Fprintf(w, "socket %d: %s %s %s\n", i, s.Family, s.Proto, s.Name)
		}
		if cfg.ChmodSocket {
			fmt.Fprintf(w, "chmod: %o\n", cfg.EffectiveChmodMode())
		}
		if cfg.Exec != "" {
			fmt.Fprintf(w, "exec: %s\n", cfg.Exec)
		}
	case cfg.Probe:
		fmt.Fprintf(w, "mode: probe (timeout %s)\n", cfg.Timeout)
		for _, t := range cfg.Targets {
			fmt.Fprintf(w, "target: %s\n", t)
		}
	default:
		fmt.Fprintf(w, "mode: connect %s (timeout %s, async %t, retries %d)\n",
			cfg.Targets[0], cfg.Timeout, cfg.Async, cfg.Retries)
	}
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gosock - socket binding and connect tool v%s

Usage:
  gosock [options] <socket>                    Connect and relay stdio
  gosock -l [options] <socket> [sockets...]    Serve sockets
  gosock -z [options] <socket> [sockets...]    Probe sockets

Sockets: /path/to.sock, @abstract, :port, host:port, 192.168.*:port

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  gosock -l /run/app.sock :8000 --chmod-socket=660
  gosock -l --udp-multicast 239.255.0.1:5000 -e 'cat'
  gosock -l --sctp 10.0.0.1,10.0.1.1:3868
  gosock -vz /run/app.sock 127.0.0.1:8000
  echo hello | gosock -w 5 --retries 3 127.0.0.1:8000

Send SIGHUP to a serving gosock to re-exec it without closing its sockets.
`)
}
