// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freedns/freedns.go/core"
)

func splitExtensions(raw string) []string {
	var out []string
	for _, ext := range strings.Split(raw, ",") {
		if ext = strings.TrimSpace(ext); ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

func buildRegistry() (core.Registry, error) {
	build, ok := core.RegistryBuilders["cloudflare"]
	if !ok {
		return nil, fmt.Errorf("no registry builder called cloudflare")
	}
	return build(map[string]string{
		"api_token": os.Getenv("CF_API_TOKEN"),
		"zone":      *zone,
	})
}

func buildLedger() (core.Ledger, error) {
	build, ok := core.LedgerBuilders[*ledgerBackend]
	if !ok {
		return nil, fmt.Errorf("no ledger builder called %s", *ledgerBackend)
	}

	switch *ledgerBackend {
	case "github":
		return build(map[string]string{
			"token":  os.Getenv("GITHUB_TOKEN"),
			"repo":   *githubRepo,
			"path":   *githubPath,
			"branch": *githubBranch,
		})
	case "redis":
		return build(map[string]string{
			"addr": *redisAddr,
			"db":   strconv.Itoa(*redisIdx),
		})
	default:
		return build(nil)
	}
}

// configStatus reports which settings are present, by name only. Values and
// secrets never leave the process.
func configStatus() map[string]string {
	present := func(ok bool) string {
		if ok {
			return "set"
		}
		return "missing"
	}
	return map[string]string{
		"CF_API_TOKEN":       present(os.Getenv("CF_API_TOKEN") != ""),
		"GITHUB_TOKEN":       present(os.Getenv("GITHUB_TOKEN") != ""),
		"zone":               present(*zone != ""),
		"allowed-extensions": present(*allowedExts != ""),
		"ledger":             *ledgerBackend,
	}
}

func _server(log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := buildRegistry()
	if err != nil {
		return err
	}
	defer registry.Close()

	ledger, err := buildLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	wf := &core.Workflow{
		Registry:          registry,
		Ledger:            ledger,
		AllowedExtensions: splitExtensions(*allowedExts),
		TTL:               *recordTTL,
		Log:               log,
	}

	go func() {
		<-signalC
		cancel()
	}()

	log.Info().Str("listen", *httpListen).Msg("listening")

	s := http.Server{Addr: *httpListen, Handler: Router(log, wf, configStatus())}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = s.Shutdown(context.Background())
	}()

	err = s.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
