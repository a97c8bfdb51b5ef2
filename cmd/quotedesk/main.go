package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"quotedesk/internal/cli"
	"quotedesk/internal/config"
	"quotedesk/internal/remote"
	"quotedesk/internal/session"
	"quotedesk/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quotedesk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath, clientID, baseURL string
	fs.StringVar(&configPath, "config", "./configs/config.yaml", "config file path")
	fs.StringVar(&clientID, "client", "", "client identifier sent with every request")
	fs.StringVar(&baseURL, "url", "", "quote service base URL (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(stderr, "Failed to init logger: %v\n", err)
		return 1
	}
	// log lines must not interleave with the transcript on stdout
	logger.SetOutput(stderr)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open log file: %v\n", err)
			return 1
		}
		defer func() {
			logger.SetOutput(stderr)
			f.Close()
		}()
		logger.SetOutput(f)
	}

	if baseURL == "" {
		baseURL = cfg.Service.BaseURL
	}
	if clientID == "" {
		clientID = cfg.Client.ID
	}

	client := remote.NewClient(baseURL, cfg.Service.Timeout)
	sess := session.New(client, session.WithClientID(clientID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stdout, "Connected to %s\n", client.BaseURL())
	repl := cli.NewREPL(sess, stdout)
	if err := repl.Run(ctx, stdin); err != nil {
		logger.Errorf("REPL stopped: %v", err)
		return 1
	}
	return 0
}
