// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

// Package redis keeps the registration ledger as a JSON document and a
// version counter under two keys. Reads and compare-and-set writes run as
// Lua scripts so a stale version is rejected by the server, not the client.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/freedns/freedns.go/core"
)

const (
	docKey = "freedns:ledger"
	verKey = "freedns:ledger:ver"
)

var readScript = rueidis.NewLuaScript(`
local ver = redis.call('GET', KEYS[2])
local doc = redis.call('GET', KEYS[1])
return {ver or '', doc or ''}
`)

var casScript = rueidis.NewLuaScript(`
local cur = redis.call('GET', KEYS[2])
if not cur then cur = '' end
if cur ~= ARGV[1] then return -1 end
local new = redis.call('INCR', KEYS[2])
redis.call('SET', KEYS[1], ARGV[2])
return new
`)

type Ledger struct {
	Client rueidis.Client
}

func (l *Ledger) Read(ctx context.Context) (string, []core.Registration, error) {
	fields, err := readScript.Exec(ctx, l.Client, []string{docKey, verKey}, nil).ToArray()
	if err != nil {
		return "", nil, core.Wrap(core.KindLedgerUnavailable, err, "reading the ledger document failed")
	}
	if len(fields) != 2 {
		return "", nil, core.E(core.KindLedgerUnavailable, "unexpected ledger read reply shape")
	}

	version, err := fields[0].ToString()
	if err != nil {
		return "", nil, core.Wrap(core.KindLedgerUnavailable, err, "reading the ledger version failed")
	}
	doc, err := fields[1].ToString()
	if err != nil {
		return "", nil, core.Wrap(core.KindLedgerUnavailable, err, "reading the ledger document failed")
	}

	entries := []core.Registration{}
	if doc != "" {
		if err := json.Unmarshal([]byte(doc), &entries); err != nil {
			return "", nil, core.Wrap(core.KindLedgerUnavailable, err, "ledger document is not valid JSON")
		}
	}

	return version, entries, nil
}

func (l *Ledger) Write(ctx context.Context, version string, entries []core.Registration) (string, error) {
	doc, err := json.Marshal(entries)
	if err != nil {
		return "", core.Wrap(core.KindInternal, err, "encoding the ledger document failed")
	}

	next, err := casScript.Exec(ctx, l.Client, []string{docKey, verKey}, []string{version, string(doc)}).AsInt64()
	if err != nil {
		return "", core.Wrap(core.KindLedgerUnavailable, err, "writing the ledger document failed")
	}
	if next < 0 {
		return "", core.ErrVersionConflict
	}

	return strconv.FormatInt(next, 10), nil
}

func (l *Ledger) Close() error {
	l.Client.Close()
	return nil
}

func Build(config map[string]string) (core.Ledger, error) {
	addr := config["addr"]
	if addr == "" {
		return nil, fmt.Errorf("redis: require [addr]")
	}

	idx := 0
	if config["db"] != "" {
		var err error
		idx, err = strconv.Atoi(config["db"])
		if err != nil {
			return nil, fmt.Errorf("redis: invalid db index %q", config["db"])
		}
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
		SelectDB:    idx,
	})
	if err != nil {
		return nil, err
	}

	err = client.Do(context.Background(), client.B().Ping().Build()).Error()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %v", err)
	}

	return &Ledger{Client: client}, nil
}

func init() {
	core.LedgerBuilders["redis"] = Build
}
