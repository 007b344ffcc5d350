// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const DefaultTTL = 3600

// Workflow orchestrates the two-phase write across the DNS provider and the
// ledger. All remote calls are sequential so that compensation knows exactly
// which records exist. The duplicate check takes no lock between the check
// and the create; two concurrent registrations of the same name can race.
// The reconcile pass is the remedy for the inconsistencies that can leave.
type Workflow struct {
	Registry Registry
	Ledger   Ledger

	// AllowedExtensions is the extension allow-list, entries like ".example.com".
	AllowedExtensions []string

	// TTL for created NS records. DefaultTTL when zero.
	TTL int

	// Now is the clock, time.Now when nil. Tests pin it.
	Now func() time.Time

	Log zerolog.Logger
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w *Workflow) ttl() int {
	if w.TTL > 0 {
		return w.TTL
	}
	return DefaultTTL
}

// Register validates the request, checks both stores for an existing
// registration, creates one NS record per nameserver and appends the entry
// to the ledger. Partial DNS failure is compensated by deleting the records
// already created. A ledger version conflict is retried once with a fresh
// read; failure after that leaves the DNS records in place and is surfaced
// as LedgerWriteFailed.
func (w *Workflow) Register(ctx context.Context, domain, email string, nameservers []string) (Registration, error) {
	domain, nameservers, err := ValidateRegistration(domain, email, nameservers, w.AllowedExtensions)
	if err != nil {
		return Registration{}, err
	}

	version, entries, err := w.Ledger.Read(ctx)
	if err != nil {
		return Registration{}, err
	}
	if findByDomain(entries, domain) >= 0 {
		return Registration{}, Ef(KindAlreadyRegistered, "domain %s is already registered", domain)
	}

	existing, err := w.Registry.ListRecords(ctx, domain)
	if err != nil {
		return Registration{}, err
	}
	if len(existing) > 0 {
		return Registration{}, Ef(KindAlreadyRegistered, "domain %s is already registered", domain)
	}

	created, err := w.createRecords(ctx, domain, email, nameservers)
	if err != nil {
		return Registration{}, err
	}

	reg := Registration{
		Domain:      domain,
		Email:       email,
		Nameservers: nameservers,
		Status:      StatusActive,
		Created:     w.now(),
	}

	_, err = w.Ledger.Write(ctx, version, append(entries, reg))
	if IsKind(err, KindVersionConflict) {
		// Another writer raced. One fresh read-modify-write, then give up.
		version, entries, err = w.Ledger.Read(ctx)
		if err == nil {
			if findByDomain(entries, domain) >= 0 {
				// The race was for this very name. Undo our own records and
				// report the duplicate instead of overwriting the winner.
				w.rollback(ctx, created)
				return Registration{}, Ef(KindAlreadyRegistered, "domain %s is already registered", domain)
			}
			_, err = w.Ledger.Write(ctx, version, append(entries, reg))
		}
	}
	if err != nil {
		w.Log.Error().Err(err).Str("domain", domain).Msg("ledger write failed after DNS create")
		return Registration{}, Wrap(KindLedgerWriteFailed, err,
			"DNS records were created but recording the registration failed; the ledger may be out of sync until the next reconcile")
	}

	return reg, nil
}

// Update replaces the nameserver set of an existing registration. The old NS
// records are deleted before the new ones are created; if creating the new
// set fails after that point no compensation is attempted and the caller
// sees DNSCreateFailed with the old records already gone.
func (w *Workflow) Update(ctx context.Context, domain, email string, nameservers []string) (Registration, error) {
	domain, nameservers, err := ValidateRegistration(domain, email, nameservers, w.AllowedExtensions)
	if err != nil {
		return Registration{}, err
	}

	version, entries, err := w.Ledger.Read(ctx)
	if err != nil {
		return Registration{}, err
	}
	i := findByOwner(entries, domain, email)
	if i < 0 {
		return Registration{}, errNotFoundOrUnauthorized()
	}

	if err := w.deleteRecords(ctx, domain); err != nil {
		return Registration{}, err
	}
	if _, err := w.createRecords(ctx, domain, email, nameservers); err != nil {
		return Registration{}, err
	}

	entries[i].Nameservers = nameservers
	entries[i].Updated = w.now()
	updated := entries[i]

	_, err = w.Ledger.Write(ctx, version, entries)
	if IsKind(err, KindVersionConflict) {
		version, entries, err = w.Ledger.Read(ctx)
		if err == nil {
			if i = findByOwner(entries, domain, email); i < 0 {
				return Registration{}, errNotFoundOrUnauthorized()
			}
			entries[i].Nameservers = nameservers
			entries[i].Updated = updated.Updated
			updated = entries[i]
			_, err = w.Ledger.Write(ctx, version, entries)
		}
	}
	if err != nil {
		w.Log.Error().Err(err).Str("domain", domain).Msg("ledger write failed after DNS update")
		return Registration{}, Wrap(KindLedgerWriteFailed, err,
			"DNS records were updated but recording the change failed; the ledger may be out of sync until the next reconcile")
	}

	return updated, nil
}

// Deregister removes the NS records and the ledger entry. Provider-side
// "record not found" is treated as already deleted.
func (w *Workflow) Deregister(ctx context.Context, domain, email string) error {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return err
	}

	version, entries, err := w.Ledger.Read(ctx)
	if err != nil {
		return err
	}
	i := findByOwner(entries, domain, email)
	if i < 0 {
		return errNotFoundOrUnauthorized()
	}

	if err := w.deleteRecords(ctx, domain); err != nil {
		return err
	}

	_, err = w.Ledger.Write(ctx, version, remove(entries, i))
	if IsKind(err, KindVersionConflict) {
		version, entries, err = w.Ledger.Read(ctx)
		if err == nil {
			if i = findByOwner(entries, domain, email); i < 0 {
				// The racing writer already dropped it. Nothing left to do.
				return nil
			}
			_, err = w.Ledger.Write(ctx, version, remove(entries, i))
		}
	}
	if err != nil {
		w.Log.Error().Err(err).Str("domain", domain).Msg("ledger write failed after DNS delete")
		return Wrap(KindLedgerWriteFailed, err,
			"DNS records were deleted but the registration entry remains; the ledger may be out of sync until the next reconcile")
	}

	return nil
}

// ListByEmail returns the registrations owned by email, oldest first.
func (w *Workflow) ListByEmail(ctx context.Context, email string) ([]Registration, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	_, entries, err := w.Ledger.Read(ctx)
	if err != nil {
		return nil, err
	}

	owned := []Registration{}
	for _, reg := range entries {
		if reg.Email == email {
			owned = append(owned, reg)
		}
	}
	return owned, nil
}

// createRecords creates one NS record per nameserver, in order. When a
// create after the first fails, the records created so far are deleted
// before the error is returned.
func (w *Workflow) createRecords(ctx context.Context, domain, email string, nameservers []string) ([]Record, error) {
	var created []Record
	for _, ns := range nameservers {
		rec, err := w.Registry.CreateRecord(ctx, Record{
			Type:    "NS",
			Name:    domain,
			Content: ns,
			TTL:     w.ttl(),
			Comment: "Registered for " + email,
		})
		if err != nil {
			w.rollback(ctx, created)
			return nil, Wrap(KindDNSCreateFailed, err, "creating NS record for "+ns+" failed")
		}
		created = append(created, rec)
	}
	return created, nil
}

// rollback deletes just-created records. Failures are logged and skipped:
// the registration already failed and a half-done rollback is for the
// reconcile pass to pick up.
func (w *Workflow) rollback(ctx context.Context, created []Record) {
	for _, rec := range created {
		if err := w.Registry.DeleteRecord(ctx, rec.ID); err != nil {
			w.Log.Warn().Err(err).Str("record", rec.ID).Str("name", rec.Name).Msg("rollback delete failed")
		}
	}
}

// deleteRecords removes every NS record the provider holds for domain.
func (w *Workflow) deleteRecords(ctx context.Context, domain string) error {
	records, err := w.Registry.ListRecords(ctx, domain)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Registry.DeleteRecord(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

// Absence and ownership mismatch are deliberately indistinguishable to the
// caller so that probing cannot reveal whether a domain exists.
func errNotFoundOrUnauthorized() *Error {
	return E(KindNotFoundOrUnauthorized, "domain not found or permission denied")
}

func findByDomain(entries []Registration, domain string) int {
	for i, reg := range entries {
		if reg.Domain == domain {
			return i
		}
	}
	return -1
}

func findByOwner(entries []Registration, domain, email string) int {
	i := findByDomain(entries, domain)
	if i >= 0 && entries[i].Email == email {
		return i
	}
	return -1
}

func remove(entries []Registration, i int) []Registration {
	out := make([]Registration, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	return append(out, entries[i+1:]...)
}
