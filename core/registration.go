// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package core

import (
	"context"
	"time"
)

const (
	StatusActive  = "active"
	StatusPending = "pending"
	StatusExpired = "expired"
)

// Registration links a delegated domain to its owner email and nameserver set.
// Domain is unique across the ledger. Created and Updated are set by the
// workflow only, never taken from the caller.
type Registration struct {
	Domain      string    `json:"domain"`
	Email       string    `json:"email"`
	Nameservers []string  `json:"nameservers"`
	Status      string    `json:"status"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated,omitempty"`
}

// Record is a DNS record as the provider sees it. ID is provider-assigned
// and opaque; it is empty on records that have not been created yet.
type Record struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Comment string `json:"comment,omitempty"`
}

// Registry is a DNS provider scoped to one zone.
//
// ListRecords returns the NS records for a name, an empty slice when none
// match; ListZone returns every NS record in the zone (the reconcile pass
// diffs it against the ledger). DeleteRecord treats an unknown id as
// already deleted.
type Registry interface {
	ListRecords(ctx context.Context, name string) ([]Record, error)
	ListZone(ctx context.Context) ([]Record, error)
	CreateRecord(ctx context.Context, record Record) (Record, error)
	DeleteRecord(ctx context.Context, id string) error
	Close() error
}

// Ledger is the system of record for registrations: one versioned document
// holding the full registration list.
//
// Read returns an empty list and an empty version when the document does not
// exist yet. Write must reject a stale version with ErrVersionConflict and
// never overwrite blindly; the version check is the only concurrency guard.
type Ledger interface {
	Read(ctx context.Context) (version string, entries []Registration, err error)
	Write(ctx context.Context, version string, entries []Registration) (newVersion string, err error)
	Close() error
}

type RegistryBuilder func(config map[string]string) (Registry, error)

type LedgerBuilder func(config map[string]string) (Ledger, error)

var RegistryBuilders = map[string]RegistryBuilder{}

var LedgerBuilders = map[string]LedgerBuilder{}
