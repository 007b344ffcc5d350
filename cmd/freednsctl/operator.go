// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/freedns/freedns.go/core"
)

// Operator mode works on the ledger directly, bypassing the DNS provider.
// It is for fixing bookkeeping by hand; use -reconcile for drift repair.
func _operator(log zerolog.Logger) error {
	ctx := context.Background()

	ledger, err := buildLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	version, entries, err := ledger.Read(ctx)
	if err != nil {
		return err
	}

	switch {
	case *opQuery && *domain != "":
		name, err := core.NormalizeDomain(*domain)
		if err != nil {
			return err
		}
		for _, reg := range entries {
			if reg.Domain == name {
				b, _ := json.MarshalIndent(reg, "", "  ")
				fmt.Println(string(b))
				return nil
			}
		}
		return fmt.Errorf("domain %s is not registered", name)

	case *opQuery:
		b, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(b))
		return nil

	case *opDelete && *domain != "":
		name, err := core.NormalizeDomain(*domain)
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, reg := range entries {
			if reg.Domain != name {
				kept = append(kept, reg)
			}
		}
		if len(kept) == len(entries) {
			return fmt.Errorf("domain %s is not registered", name)
		}
		if _, err := ledger.Write(ctx, version, kept); err != nil {
			return err
		}
		log.Info().Str("domain", name).Msg("ledger entry removed; provider records are untouched")
		return nil
	}

	fmt.Println("Nothing to do. Combine -query or -delete with -domain.")
	return nil
}
