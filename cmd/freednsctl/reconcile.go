// Copyright 2025 Jelly Terra <jellyterra@proton.me>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/freedns/freedns.go/core"
)

// Reconcile mode is the out-of-band remedy for the workflow's known gaps:
// a ledger write that failed after DNS succeeded, a half-finished rollback,
// an update that lost its new record set. It reports drift between the
// provider zone and the ledger; -prune additionally deletes provider NS
// records that no ledger entry claims.
func _reconcile(log zerolog.Logger) error {
	ctx := context.Background()

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

	_, entries, err := ledger.Read(ctx)
	if err != nil {
		return err
	}

	records, err := registry.ListZone(ctx)
	if err != nil {
		return err
	}

	byName := map[string][]core.Record{}
	for _, rec := range records {
		byName[rec.Name] = append(byName[rec.Name], rec)
	}

	drift := 0
	for _, reg := range entries {
		recs := byName[reg.Domain]
		delete(byName, reg.Domain)

		if len(recs) == 0 {
			drift++
			log.Warn().Str("domain", reg.Domain).Msg("ledger entry has no provider records")
			continue
		}

		contents := make([]string, len(recs))
		for i, rec := range recs {
			contents[i] = rec.Content
		}
		slices.Sort(contents)

		want := slices.Clone(reg.Nameservers)
		slices.Sort(want)

		if !slices.Equal(contents, want) {
			drift++
			log.Warn().Str("domain", reg.Domain).
				Strs("provider", contents).
				Strs("ledger", want).
				Msg("nameserver sets disagree")
		}
	}

	for name, recs := range byName {
		drift++
		log.Warn().Str("domain", name).Int("records", len(recs)).Msg("provider records have no ledger entry")
		if !*prune {
			continue
		}
		for _, rec := range recs {
			if err := registry.DeleteRecord(ctx, rec.ID); err != nil {
				log.Error().Err(err).Str("record", rec.ID).Str("domain", name).Msg("prune failed")
				continue
			}
			log.Info().Str("record", rec.ID).Str("domain", name).Msg("orphaned record deleted")
		}
	}

	log.Info().Int("entries", len(entries)).Int("drift", drift).Msg("reconcile finished")
	return nil
}
