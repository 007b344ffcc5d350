// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/freedns/freedns.go/core"

	_ "github.com/freedns/freedns.go/ledger/github"
	_ "github.com/freedns/freedns.go/ledger/memory"
	_ "github.com/freedns/freedns.go/ledger/redis"
	_ "github.com/freedns/freedns.go/registry/cloudflare"
)

// Secrets come from the environment only. CF_API_TOKEN authenticates against
// the DNS provider, GITHUB_TOKEN against the ledger repository.
var (
	asServer    = flag.Bool("server", false, "Run as registration API server.")
	asOperator  = flag.Bool("operate", false, "Run as ledger operator.")
	asReconcile = flag.Bool("reconcile", false, "Compare provider records against the ledger and report drift.")

	httpListen = flag.String("http-listen", ":8787", "HTTP listen address.")

	zone        = flag.String("zone", "", "Zone name the subdomains are delegated under.")
	allowedExts = flag.String("allowed-extensions", "", "Comma-separated extension allow-list, e.g. .example.com,.example.net.")
	recordTTL   = flag.Int("record-ttl", core.DefaultTTL, "TTL for created NS records.")

	ledgerBackend = flag.String("ledger", "github", "Ledger backend: github, redis or memory.")
	githubRepo    = flag.String("github-repo", "", "Repository holding the ledger document, owner/name.")
	githubPath    = flag.String("github-path", "domains.json", "Path of the ledger document in the repository.")
	githubBranch  = flag.String("github-branch", "", "Branch of the ledger document. Repository default when empty.")
	redisAddr     = flag.String("redis-addr", "[::1]:6379", "Redis address.")
	redisIdx      = flag.Int("redis-db", 0, "Redis database index.")

	opQuery  = flag.Bool("query", false, "Query.")
	opDelete = flag.Bool("delete", false, "Delete.")
	domain   = flag.String("domain", "", "Specify the domain.")
	prune    = flag.Bool("prune", false, "Reconcile only: delete provider records with no ledger entry.")

	logJSON = flag.Bool("log-json", false, "Emit JSON logs instead of console output.")

	signalC = make(chan os.Signal, 1)
)

func newLogger() zerolog.Logger {
	if *logJSON {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func main() {
	flag.Parse()

	log := newLogger()

	signal.Notify(signalC, syscall.SIGINT, syscall.SIGTERM)

	var err error
	switch {
	case *asServer:
		err = _server(log)
	case *asOperator:
		err = _operator(log)
	case *asReconcile:
		err = _reconcile(log)
	default:
		flag.Usage()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("exited")
	}
}
