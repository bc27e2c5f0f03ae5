// Package main provides filepush, the sending side of filepush.
//
// Each file named on the command line is sent over its own TCP connection
// to a filepushd server. The first failure aborts the run. With -watch the
// client keeps running and pushes files as they appear in a directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/opd-ai/filepush/config"
	"github.com/opd-ai/filepush/file"
	"github.com/opd-ai/filepush/logging"
	"github.com/opd-ai/filepush/transport"
	"github.com/opd-ai/filepush/watcher"
	"github.com/sirupsen/logrus"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	infoColor = color.New(color.FgCyan)
)

// parseCLIFlags parses args on top of the environment configuration.
func parseCLIFlags(args []string, output io.Writer) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("filepush", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { printUsage(fs, output) }
	cfg.RegisterClientFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Files = fs.Args()
	return cfg, nil
}

// printUsage prints the usage information.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "filepush - push files to a filepushd server")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  filepush -s address [options] file...")
	fmt.Fprintln(w, "  filepush -s address -watch dir [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.PrintDefaults()
}

// client sends files to one server address.
type client struct {
	addr   string
	dialer *transport.Dialer
	sender *file.Sender
	out    io.Writer
}

func newClient(cfg *config.Config, out io.Writer) (*client, error) {
	proxyCfg, err := cfg.ProxyConfig()
	if err != nil {
		return nil, err
	}
	dialer, err := transport.NewDialer(transport.DefaultDialTimeout, proxyCfg)
	if err != nil {
		return nil, err
	}
	return &client{
		addr:   cfg.ServerAddress(),
		dialer: dialer,
		sender: file.NewSender(file.WithSendBufferSize(cfg.BufferSize)),
		out:    out,
	}, nil
}

// push sends the file at path under name over a fresh connection.
func (c *client) push(ctx context.Context, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", transport.ErrSourceUnavailable, err)
	}
	defer src.Close()

	conn, err := c.dialer.DialContext(ctx, c.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	// a cancelled run interrupts the body
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	transfer, err := c.sender.Send(src, name, conn)
	if err != nil {
		return err
	}

	okColor.Fprintf(c.out, "sent %s (%d bytes) to %s in %v\n", name, transfer.GetTransferred(), c.addr, transfer.Duration())
	return nil
}

// pushAll sends files in order and stops at the first failure.
func (c *client) pushAll(ctx context.Context, files []string) error {
	for _, path := range files {
		if err := c.push(ctx, path, path); err != nil {
			failColor.Fprintf(c.out, "failed %s: %v\n", path, err)
			return err
		}
	}
	return nil
}

// watch pushes files created or written under dir until ctx is cancelled.
// Names on the wire are relative to dir. Failures are reported and the
// watch continues.
func (c *client) watch(ctx context.Context, dir string, filter watcher.FilterConfig) error {
	w, err := watcher.New(dir, filter)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	infoColor.Fprintf(c.out, "watching %s, pushing to %s\n", dir, c.addr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			logrus.WithFields(logrus.Fields{
				"function": "watch",
				"path":     dir,
				"error":    err.Error(),
			}).Warn("Watcher error")
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			c.handleEvent(ctx, dir, ev)
		}
	}
}

func (c *client) handleEvent(ctx context.Context, dir string, ev watcher.FileEvent) {
	if !ev.Pushable() {
		return
	}
	info, err := os.Stat(ev.Path)
	if err != nil || info.IsDir() {
		return
	}

	name, err := filepath.Rel(dir, ev.Path)
	if err != nil {
		name = filepath.Base(ev.Path)
	}
	name = filepath.ToSlash(name)

	if err := c.push(ctx, ev.Path, name); err != nil {
		failColor.Fprintf(c.out, "failed %s: %v\n", name, err)
	}
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseCLIFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	if err := cfg.ValidateClient(); err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(stderr, "Use -help for usage information.\n")
		return 1
	}

	if _, err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}); err != nil {
		fmt.Fprintf(stderr, "Logging setup failed: %v\n", err)
		return 1
	}

	c, err := newClient(cfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	if err := c.pushAll(ctx, cfg.Files); err != nil {
		return 1
	}

	if cfg.WatchDir != "" {
		if err := c.watch(ctx, cfg.WatchDir, watcher.DefaultFilterConfig()); err != nil {
			failColor.Fprintf(stdout, "watch failed: %v\n", err)
			return 1
		}
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
