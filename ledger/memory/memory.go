// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

// Package memory holds the registration ledger in process. It backs tests
// and the dev mode; the interface and versioning behavior are identical to
// the remote backends so the workflow cannot tell them apart.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/freedns/freedns.go/core"
)

type Ledger struct {
	mu      sync.RWMutex
	seq     uint64
	entries []core.Registration
}

func New() *Ledger { return &Ledger{} }

func (l *Ledger) Read(_ context.Context) (string, []core.Registration, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.seq == 0 {
		return "", []core.Registration{}, nil
	}

	entries := make([]core.Registration, len(l.entries))
	copy(entries, l.entries)
	return strconv.FormatUint(l.seq, 10), entries, nil
}

func (l *Ledger) Write(_ context.Context, version string, entries []core.Registration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := ""
	if l.seq > 0 {
		current = strconv.FormatUint(l.seq, 10)
	}
	if version != current {
		return "", core.ErrVersionConflict
	}

	l.seq++
	l.entries = make([]core.Registration, len(entries))
	copy(l.entries, entries)
	return strconv.FormatUint(l.seq, 10), nil
}

func (l *Ledger) Close() error { return nil }

func Build(_ map[string]string) (core.Ledger, error) {
	return New(), nil
}

func init() {
	core.LedgerBuilders["memory"] = Build
}
