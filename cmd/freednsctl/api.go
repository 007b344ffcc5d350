// Copyright 2025 Jelly Terra <jellyterra@proton.me>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/freedns/freedns.go/core"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Envelope is the response body shape shared by all endpoints.
type Envelope struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message,omitempty"`
	Domain    *core.Registration  `json:"domain,omitempty"`
	Domains   []core.Registration `json:"domains,omitempty"`
	Endpoints map[string]string   `json:"available_endpoints,omitempty"`
	Config    map[string]string   `json:"config,omitempty"`
}

type domainRequest struct {
	Domain      string   `json:"domain" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Nameservers []string `json:"nameservers" validate:"required,min=2,max=4,dive,required"`
}

type deleteRequest struct {
	Domain string `json:"domain" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to a status and returns only the
// caller-safe message, never a wrapped provider payload.
func writeError(w http.ResponseWriter, err error) {
	msg := "internal error"
	var e *core.Error
	if errors.As(err, &e) && e.Msg != "" {
		msg = e.Msg
	}
	writeJSON(w, core.KindOf(err).HTTPStatus(), Envelope{Success: false, Message: msg})
}

// bind decodes the body into v and runs the struct-level shape checks. The
// semantic rules (charsets, allow-list) live in the core validator.
func bind(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.E(core.KindInvalidInput, "request body is not valid JSON")
	}
	if err := validate.Struct(v); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return core.FieldError(fields[0].Field(), "missing or malformed field")
		}
		return core.E(core.KindInvalidInput, "request is malformed")
	}
	return nil
}

func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

var endpoints = map[string]string{
	"GET /":               "Health check",
	"GET /health":         "Health check with config presence",
	"GET /domains?email=": "List registrations by owner email",
	"POST /domain":        "Register a domain",
	"PUT /domain":         "Update a registration's nameservers",
	"DELETE /domain":      "Deregister a domain",
}

func Router(log zerolog.Logger, wf *core.Workflow, config map[string]string) http.Handler {
	r := chi.NewRouter()

	r.Use(accessLog(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	health := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "server is running", Config: config})
	}
	r.Get("/", health)
	r.Get("/health", health)

	r.Post("/domain", func(w http.ResponseWriter, r *http.Request) {
		var req domainRequest
		if err := bind(r, &req); err != nil {
			writeError(w, err)
			return
		}
		reg, err := wf.Register(r.Context(), req.Domain, req.Email, req.Nameservers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, Envelope{Success: true, Message: "domain registered", Domain: &reg})
	})

	r.Put("/domain", func(w http.ResponseWriter, r *http.Request) {
		var req domainRequest
		if err := bind(r, &req); err != nil {
			writeError(w, err)
			return
		}
		reg, err := wf.Update(r.Context(), req.Domain, req.Email, req.Nameservers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "domain updated", Domain: &reg})
	})

	r.Delete("/domain", func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := bind(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := wf.Deregister(r.Context(), req.Domain, req.Email); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "domain deleted"})
	})

	r.Get("/domains", func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			writeError(w, core.FieldError("email", "email query parameter is required"))
			return
		}
		domains, err := wf.ListByEmail(r.Context(), email)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Envelope{Success: true, Domains: domains})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Envelope{Success: false, Message: "not found", Endpoints: endpoints})
	})

	return r
}
