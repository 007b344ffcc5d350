// Copyright 2025 Jelly Terra <jellyterra@proton.me>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package core

import (
	"strings"

	"golang.org/x/net/idna"
)

const (
	MinLabelLen = 3
	MaxLabelLen = 63

	MinNameservers = 2
	MaxNameservers = 4
)

// NormalizeDomain converts an internationalized name to its ASCII form and
// lowercases it. Pure, no lookups.
func NormalizeDomain(domain string) (string, error) {
	ascii, err := idna.ToASCII(strings.TrimSpace(domain))
	if err != nil {
		return "", FieldError("domain", "domain is not a valid internationalized name")
	}
	return strings.ToLower(ascii), nil
}

// ValidateRegistration checks one registration request and returns the
// normalized domain and nameserver hostnames. allowed is the extension
// allow-list, entries like ".example.com".
func ValidateRegistration(domain, email string, nameservers []string, allowed []string) (string, []string, error) {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return "", nil, err
	}

	ext, ok := matchExtension(domain, allowed)
	if !ok {
		return "", nil, FieldError("domain", "domain extension is not allowed")
	}

	if err := validateSubdomain(strings.TrimSuffix(domain, ext)); err != nil {
		return "", nil, err
	}

	if err := ValidateEmail(email); err != nil {
		return "", nil, err
	}

	if len(nameservers) < MinNameservers || len(nameservers) > MaxNameservers {
		return "", nil, FieldError("nameservers", "between 2 and 4 nameservers are required")
	}

	normalized := make([]string, len(nameservers))
	for i, ns := range nameservers {
		h, err := NormalizeDomain(ns)
		if err != nil || !validHostname(h) {
			return "", nil, FieldError("nameservers", "nameserver is not a valid hostname: "+ns)
		}
		normalized[i] = h
	}

	return domain, normalized, nil
}

func matchExtension(domain string, allowed []string) (string, bool) {
	for _, ext := range allowed {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && strings.HasSuffix(domain, ext) && len(domain) > len(ext) {
			return ext, true
		}
	}
	return "", false
}

func validateSubdomain(label string) error {
	if len(label) < MinLabelLen || len(label) > MaxLabelLen {
		return FieldError("domain", "subdomain must be 3 to 63 characters long")
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return FieldError("domain", "subdomain may contain lowercase letters, digits and hyphens only")
		}
	}
	return nil
}

// ValidateEmail accepts addresses with exactly one @, a non-empty local part
// and a dotted domain part. Deliverability is not checked.
func ValidateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return FieldError("email", "email address is malformed")
	}
	host := email[at+1:]
	dot := strings.Index(host, ".")
	if dot <= 0 || dot == len(host)-1 {
		return FieldError("email", "email address is malformed")
	}
	return nil
}

// validHostname checks dot-separated LDH labels with an alphabetic final
// label of at least two characters.
func validHostname(host string) bool {
	host = strings.TrimSuffix(host, ".")
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > MaxLabelLen {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z':
			case c >= '0' && c <= '9':
			case c == '-':
			default:
				return false
			}
		}
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}
	for i := 0; i < len(tld); i++ {
		if tld[i] < 'a' || tld[i] > 'z' {
			return false
		}
	}
	return true
}
