// Copyright 2025 Jelly Terra <jellyterra@proton.me>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

// Package github keeps the registration ledger as one JSON document in a
// repository, written through the Contents API. The blob SHA is the version
// token: every write presents the SHA last read and the API rejects stale
// ones, which is the only concurrency guard the store offers.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/freedns/freedns.go/core"
)

type Ledger struct {
	Client *github.Client
	Owner  string
	Repo   string
	Path   string
	Branch string
}

func (l *Ledger) Read(ctx context.Context) (string, []core.Registration, error) {
	file, _, resp, err := l.Client.Repositories.GetContents(ctx, l.Owner, l.Repo, l.Path, &github.RepositoryContentGetOptions{
		Ref: l.Branch,
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			// First use, nothing written yet.
			return "", []core.Registration{}, nil
		}
		return "", nil, core.Wrap(core.KindLedgerUnavailable, err, "reading the ledger document failed")
	}
	if file == nil {
		return "", nil, core.E(core.KindLedgerUnavailable, "ledger path is a directory, not a document")
	}

	content, err := file.GetContent()
	if err != nil {
		return "", nil, core.Wrap(core.KindLedgerUnavailable, err, "decoding the ledger document failed")
	}

	entries := []core.Registration{}
	if strings.TrimSpace(content) != "" {
		if err := json.Unmarshal([]byte(content), &entries); err != nil {
			return "", nil, core.Wrap(core.KindLedgerUnavailable, err, "ledger document is not valid JSON")
		}
	}

	return file.GetSHA(), entries, nil
}

func (l *Ledger) Write(ctx context.Context, version string, entries []core.Registration) (string, error) {
	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", core.Wrap(core.KindInternal, err, "encoding the ledger document failed")
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String("Update registrations"),
		Content: content,
	}
	if l.Branch != "" {
		opts.Branch = github.String(l.Branch)
	}

	var written *github.RepositoryContentResponse
	var resp *github.Response
	if version == "" {
		written, resp, err = l.Client.Repositories.CreateFile(ctx, l.Owner, l.Repo, l.Path, opts)
	} else {
		opts.SHA = github.String(version)
		written, resp, err = l.Client.Repositories.UpdateFile(ctx, l.Owner, l.Repo, l.Path, opts)
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity) {
			return "", core.ErrVersionConflict
		}
		return "", core.Wrap(core.KindLedgerUnavailable, err, "writing the ledger document failed")
	}

	return written.Content.GetSHA(), nil
}

func (l *Ledger) Close() error { return nil }

func Build(config map[string]string) (core.Ledger, error) {
	var (
		token  = config["token"]
		repo   = config["repo"]
		path   = config["path"]
		branch = config["branch"]
	)
	if token == "" || repo == "" {
		return nil, fmt.Errorf("github: require [token, repo]")
	}
	if path == "" {
		path = "domains.json"
	}

	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("github: repo must be owner/name, got %q", repo)
	}

	hc := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	return &Ledger{
		Client: github.NewClient(hc),
		Owner:  owner,
		Repo:   name,
		Path:   path,
		Branch: branch,
	}, nil
}

func init() {
	core.LedgerBuilders["github"] = Build
}
