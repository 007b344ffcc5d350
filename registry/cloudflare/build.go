// Copyright 2025 Jelly Terra <jellyterra@proton.me>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package cloudflare

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudflare/cloudflare-go"
	"github.com/freedns/freedns.go/core"
)

// Registry manages NS records in one Cloudflare zone. Calls go straight to
// the API rather than through a startup snapshot: the workflow needs
// read-after-write accuracy for its duplicate check and compensation.
type Registry struct {
	API *cloudflare.API
	RC  *cloudflare.ResourceContainer
}

func (r *Registry) ListRecords(ctx context.Context, name string) ([]core.Record, error) {
	records, _, err := r.API.ListDNSRecords(ctx, r.RC, cloudflare.ListDNSRecordsParams{
		Type: "NS",
		Name: name,
	})
	if err != nil {
		return nil, translate(err, "listing NS records failed")
	}

	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, core.Record{
			ID:      rec.ID,
			Type:    rec.Type,
			Name:    rec.Name,
			Content: rec.Content,
			TTL:     rec.TTL,
			Comment: rec.Comment,
		})
	}
	return out, nil
}

func (r *Registry) ListZone(ctx context.Context) ([]core.Record, error) {
	var out []core.Record
	params := cloudflare.ListDNSRecordsParams{Type: "NS"}
	for {
		records, info, err := r.API.ListDNSRecords(ctx, r.RC, params)
		if err != nil {
			return nil, translate(err, "listing zone NS records failed")
		}
		for _, rec := range records {
			out = append(out, core.Record{
				ID:      rec.ID,
				Type:    rec.Type,
				Name:    rec.Name,
				Content: rec.Content,
				TTL:     rec.TTL,
				Comment: rec.Comment,
			})
		}
		if info == nil || info.Page >= info.TotalPages {
			return out, nil
		}
		params.ResultInfo = cloudflare.ResultInfo{Page: info.Page + 1}
	}
}

func (r *Registry) CreateRecord(ctx context.Context, record core.Record) (core.Record, error) {
	created, err := r.API.CreateDNSRecord(ctx, r.RC, cloudflare.CreateDNSRecordParams{
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     record.TTL,
		Comment: record.Comment,
	})
	if err != nil {
		return core.Record{}, translate(err, "creating NS record failed")
	}

	record.ID = created.ID
	return record, nil
}

// DeleteRecord treats an id the zone no longer holds as already deleted.
func (r *Registry) DeleteRecord(ctx context.Context, id string) error {
	err := r.API.DeleteDNSRecord(ctx, r.RC, id)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return translate(err, "deleting NS record failed")
	}
	return nil
}

func (r *Registry) Close() error { return nil }

func isNotFound(err error) bool {
	var byValue cloudflare.NotFoundError
	var byPointer *cloudflare.NotFoundError
	return errors.As(err, &byValue) || errors.As(err, &byPointer)
}

func isRejected(err error) bool {
	var request cloudflare.RequestError
	var requestPtr *cloudflare.RequestError
	var ratelimit cloudflare.RatelimitError
	var ratelimitPtr *cloudflare.RatelimitError
	return errors.As(err, &request) || errors.As(err, &requestPtr) ||
		errors.As(err, &ratelimit) || errors.As(err, &ratelimitPtr)
}

// translate maps provider errors onto the workflow taxonomy. The provider
// payload stays in the wrapped cause; it is never echoed to API callers.
func translate(err error, msg string) error {
	if isNotFound(err) || isRejected(err) {
		return core.Wrap(core.KindProviderRejected, err, msg)
	}
	return core.Wrap(core.KindProviderUnavailable, err, msg)
}

func Build(config map[string]string) (core.Registry, error) {
	var (
		apiToken = config["api_token"]
		zone     = config["zone"]
	)
	if apiToken == "" || zone == "" {
		return nil, fmt.Errorf("cloudflare: require [api_token, zone]")
	}

	api, err := cloudflare.NewWithAPIToken(apiToken)
	if err != nil {
		return nil, err
	}

	zoneId, err := api.ZoneIDByName(zone)
	if err != nil {
		return nil, err
	}

	return &Registry{
		API: api,
		RC:  cloudflare.ZoneIdentifier(zoneId),
	}, nil
}

func init() {
	core.RegistryBuilders["cloudflare"] = Build
}
