// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// kmf-probe connects to a media server, builds an HTTP GET endpoint and
// prints its URL. Fetching the URL starts a media session; with
// --player-uri the session is fed from a player until the clip ends.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/config"
	"go.kurento.org/media/logging"
)

type options struct {
	Config     string        `long:"config" description:"YAML configuration file, environment variables apply on top"`
	URL        string        `long:"url" description:"media server websocket URL"`
	LogLevel   string        `long:"log-level" description:"log level"`
	Timeout    time.Duration `long:"timeout" description:"bound for each request"`
	StatusAddr string        `long:"status-addr" description:"serve the status API on this address"`
	PlayerURI  string        `long:"player-uri" description:"play this media into the endpoint once a client connects"`
}

func main() {
	opts := getCLIArgs()

	cfg, err := loadConfig(opts)
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := logging.SetLogLevel(cfg.LogLevel); err != nil {
		log.WithError(err).Fatal("Invalid log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts.PlayerURI, os.Stdout); err != nil {
		log.WithError(err).Error("Probe failed")
		stop()
		os.Exit(1)
	}
}

func getCLIArgs() options {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if isHelp(err) {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		log.WithError(err).Fatal("Failed to parse command line arguments:", os.Args)
	}
	return opts
}

func parseArgs(args []string) (options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(args)
	return opts, err
}

// isHelp reports whether err is the usage text requested with --help.
func isHelp(err error) bool {
	var flagsErr *flags.Error
	return errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp
}

// loadConfig applies the command line on top of the file or environment.
func loadConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}

	if opts.URL != "" {
		cfg.URL = opts.URL
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Timeout > 0 {
		cfg.Client.RequestTimeout = opts.Timeout
	}
	if opts.StatusAddr != "" {
		cfg.StatusAddr = opts.StatusAddr
	}
	return cfg, cfg.Validate()
}
