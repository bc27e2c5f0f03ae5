// Package main provides filepushd, the receiving side of filepush.
//
// filepushd listens for TCP connections and stores the single file each one
// carries under <download dir>/<peer IP>/<file name>. It can also install
// itself as an operating system service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/filepush/config"
	"github.com/opd-ai/filepush/daemon"
	"github.com/opd-ai/filepush/file"
	"github.com/opd-ai/filepush/logging"
	"github.com/opd-ai/filepush/server"
	"github.com/opd-ai/filepush/transport"
	"github.com/sirupsen/logrus"
)

const serviceName = "filepushd"

// CLIConfig is the parsed command line.
type CLIConfig struct {
	*config.Config
	// action is a service control verb, empty for a plain foreground run.
	action string
	// serviceArgs are the flags to hand to an installed service.
	serviceArgs []string
}

// parseCLIFlags parses args on top of the environment configuration.
func parseCLIFlags(args []string, output io.Writer) (*CLIConfig, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	cli := &CLIConfig{Config: cfg}
	if len(args) > 0 && daemon.IsAction(args[0]) {
		cli.action = args[0]
		args = args[1:]
	}
	cli.serviceArgs = append([]string{daemon.ActionRun}, args...)

	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { printUsage(fs, output) }
	cfg.RegisterServerFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cli, nil
}

// printUsage prints the usage information.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "filepushd - receive files pushed by filepush clients")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s [install|uninstall|start|stop|restart|run] [options]\n", serviceName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  # Listen on all interfaces, port 5000\n")
	fmt.Fprintf(w, "  %s\n", serviceName)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  # Install as a service storing files in /srv/incoming\n")
	fmt.Fprintf(w, "  %s install -d /srv/incoming\n", serviceName)
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(cli *CLIConfig) error {
	return cli.ValidateServer()
}

// newServer opens the listener and builds the receiver from cfg.
func newServer(cfg *config.Config) (*server.Server, error) {
	opts := []file.ReceiverOption{file.WithReceiveBufferSize(cfg.BufferSize)}
	if cfg.MinFreeBytes > 0 {
		opts = append(opts, file.WithFreeSpaceCheck(cfg.MinFreeBytes))
	}
	receiver := file.NewReceiver(cfg.DownloadDir, opts...)

	listener, err := transport.Listen(cfg.ListenAddress())
	if err != nil {
		return nil, err
	}
	return server.New(listener, receiver), nil
}

// serve returns the service body for cfg.
func serve(cfg *config.Config) daemon.RunFunc {
	return func(ctx context.Context) error {
		srv, err := newServer(cfg)
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	}
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	cli, err := parseCLIFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	if err := validateCLIConfig(cli); err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(stderr, "Use -help for usage information.\n")
		return 1
	}

	if _, err := logging.Setup(logging.Options{
		Level:  cli.LogLevel,
		Format: cli.LogFormat,
		File:   cli.LogFile,
	}); err != nil {
		fmt.Fprintf(stderr, "Logging setup failed: %v\n", err)
		return 1
	}

	if cli.action != "" {
		manager := daemon.NewManager(daemon.Config{
			Name:        serviceName,
			DisplayName: "filepush receiver",
			Description: "Receives files pushed over TCP and stores them per sending peer",
			Arguments:   cli.serviceArgs,
		}, serve(cli.Config))

		if err := manager.Control(cli.action); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "run",
				"action":   cli.action,
				"error":    err.Error(),
			}).Error("Service control failed")
			return 1
		}
		return 0
	}

	if err := serve(cli.Config)(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "run",
			"error":    err.Error(),
		}).Error("Server failed")
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}
