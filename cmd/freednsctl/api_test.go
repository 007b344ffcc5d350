// Copyright 2025 Jelly Terra <jellyterra@proton.me>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freedns/freedns.go/core"
	"github.com/freedns/freedns.go/ledger/memory"
)

type stubRegistry struct {
	seq     int
	records map[string]core.Record
}

func newStubRegistry() *stubRegistry { return &stubRegistry{records: map[string]core.Record{}} }

func (s *stubRegistry) ListRecords(_ context.Context, name string) ([]core.Record, error) {
	out := []core.Record{}
	for _, rec := range s.records {
		if rec.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubRegistry) ListZone(context.Context) ([]core.Record, error) {
	out := []core.Record{}
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *stubRegistry) CreateRecord(_ context.Context, record core.Record) (core.Record, error) {
	s.seq++
	record.ID = fmt.Sprintf("rec-%d", s.seq)
	s.records[record.ID] = record
	return record, nil
}

func (s *stubRegistry) DeleteRecord(_ context.Context, id string) error {
	delete(s.records, id)
	return nil
}

func (s *stubRegistry) Close() error { return nil }

func testRouter() http.Handler {
	wf := &core.Workflow{
		Registry:          newStubRegistry(),
		Ledger:            memory.New(),
		AllowedExtensions: []string{".example.com"},
		Log:               zerolog.Nop(),
	}
	return Router(zerolog.Nop(), wf, map[string]string{"zone": "set"})
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, Envelope) {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var env Envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

const registerBody = `{"domain":"foo.example.com","email":"a@b.com","nameservers":["ns1.x.com","ns2.x.com"]}`

func TestRegisterEndpoint(t *testing.T) {
	h := testRouter()

	w, env := do(t, h, http.MethodPost, "/domain", registerBody)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	require.NotNil(t, env.Domain)
	assert.Equal(t, "foo.example.com", env.Domain.Domain)
	assert.Equal(t, core.StatusActive, env.Domain.Status)

	w, env = do(t, h, http.MethodGet, "/domains?email=a@b.com", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.Domains, 1)
	assert.Equal(t, "foo.example.com", env.Domains[0].Domain)
}

func TestRegisterDuplicateReturnsConflict(t *testing.T) {
	h := testRouter()

	w, _ := do(t, h, http.MethodPost, "/domain", registerBody)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := do(t, h, http.MethodPost, "/domain", registerBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	h := testRouter()

	w, env := do(t, h, http.MethodPost, "/domain", `{"domain":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, _ = do(t, h, http.MethodPost, "/domain", `{"domain":"foo.example.com","email":"not-an-email","nameservers":["ns1.x.com","ns2.x.com"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodPost, "/domain", `{"domain":"foo.example.com","email":"a@b.com","nameservers":["ns1.x.com"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAndDeleteEndpoints(t *testing.T) {
	h := testRouter()

	w, _ := do(t, h, http.MethodPost, "/domain", registerBody)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := do(t, h, http.MethodPut, "/domain",
		`{"domain":"foo.example.com","email":"a@b.com","nameservers":["ns3.y.com","ns4.y.com"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Domain)
	assert.Equal(t, []string{"ns3.y.com", "ns4.y.com"}, env.Domain.Nameservers)

	// Wrong owner is indistinguishable from absent.
	w, _ = do(t, h, http.MethodPut, "/domain",
		`{"domain":"foo.example.com","email":"intruder@b.com","nameservers":["ns3.y.com","ns4.y.com"]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = do(t, h, http.MethodDelete, "/domain", `{"domain":"foo.example.com","email":"a@b.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, _ = do(t, h, http.MethodDelete, "/domain", `{"domain":"foo.example.com","email":"a@b.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRequiresEmail(t *testing.T) {
	h := testRouter()

	w, env := do(t, h, http.MethodGet, "/domains", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestHealthReportsConfigPresence(t *testing.T) {
	h := testRouter()

	for _, path := range []string{"/", "/health"} {
		w, env := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, env.Success)
		assert.Equal(t, "set", env.Config["zone"])
	}
}

func TestUnknownRouteListsEndpoints(t *testing.T) {
	h := testRouter()

	w, env := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, env.Endpoints)
}

func TestCORSPreflight(t *testing.T) {
	h := testRouter()

	r := httptest.NewRequest(http.MethodOptions, "/domain", nil)
	r.Header.Set("Origin", "https://anywhere.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Body.String())
}

func TestSplitExtensions(t *testing.T) {
	assert.Equal(t, []string{".example.com", ".example.net"}, splitExtensions(" .example.com, .example.net ,"))
	assert.Nil(t, splitExtensions(""))
}
