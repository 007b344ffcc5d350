// Copyright 2025 Jelly Terra <jellyterra@symboltics.com>
// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0
// that can be found in the LICENSE file and https://mozilla.org/MPL/2.0/.

package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freedns/freedns.go/core"
)

var allowed = []string{".example.com", ".example.net"}

func TestValidateRegistration(t *testing.T) {
	domain, ns, err := core.ValidateRegistration(
		"foo.example.com", "a@b.com", []string{"ns1.x.com", "ns2.x.com"}, allowed)
	require.NoError(t, err)
	assert.Equal(t, "foo.example.com", domain)
	assert.Equal(t, []string{"ns1.x.com", "ns2.x.com"}, ns)
}

func TestValidateRegistrationNormalizes(t *testing.T) {
	domain, ns, err := core.ValidateRegistration(
		"  FOO.Example.Com ", "a@b.com", []string{"NS1.X.COM", "ns2.x.com"}, allowed)
	require.NoError(t, err)
	assert.Equal(t, "foo.example.com", domain)
	assert.Equal(t, "ns1.x.com", ns[0])
}

func TestValidateRegistrationFourNameservers(t *testing.T) {
	_, ns, err := core.ValidateRegistration("foo.example.com", "a@b.com",
		[]string{"ns1.x.com", "ns2.x.com", "ns3.x.com", "ns4.x.com"}, allowed)
	require.NoError(t, err)
	assert.Len(t, ns, 4)
}

func TestValidateRegistrationRejects(t *testing.T) {
	two := []string{"ns1.x.com", "ns2.x.com"}

	cases := []struct {
		name        string
		domain      string
		email       string
		nameservers []string
		field       string
	}{
		{"extension not allowed", "foo.other.org", "a@b.com", two, "domain"},
		{"bare extension", ".example.com", "a@b.com", two, "domain"},
		{"subdomain too short", "ab.example.com", "a@b.com", two, "domain"},
		{"subdomain uppercase ok but symbols not", "f_o.example.com", "a@b.com", two, "domain"},
		{"subdomain too long", string(make([]byte, 64)) + ".example.com", "a@b.com", two, "domain"},
		{"email missing at", "foo.example.com", "a.b.com", two, "email"},
		{"email two ats", "foo.example.com", "a@@b.com", two, "email"},
		{"email empty local", "foo.example.com", "@b.com", two, "email"},
		{"email undotted host", "foo.example.com", "a@bcom", two, "email"},
		{"one nameserver", "foo.example.com", "a@b.com", []string{"ns1.x.com"}, "nameservers"},
		{"five nameservers", "foo.example.com", "a@b.com",
			[]string{"n1.x.com", "n2.x.com", "n3.x.com", "n4.x.com", "n5.x.com"}, "nameservers"},
		{"nameserver numeric tld", "foo.example.com", "a@b.com", []string{"ns1.x.12", "ns2.x.com"}, "nameservers"},
		{"nameserver single label", "foo.example.com", "a@b.com", []string{"localhost", "ns2.x.com"}, "nameservers"},
		{"nameserver leading hyphen label", "foo.example.com", "a@b.com", []string{"-ns.x.com", "ns2.x.com"}, "nameservers"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := core.ValidateRegistration(tc.domain, tc.email, tc.nameservers, allowed)
			require.Error(t, err)
			assert.True(t, core.IsKind(err, core.KindInvalidInput), "kind = %v", core.KindOf(err))

			var fieldErr *core.Error
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tc.field, fieldErr.Field)
		})
	}
}

func TestValidateRegistrationIDN(t *testing.T) {
	// IDN subdomains punycode to xn--..., which passes the charset check.
	domain, _, err := core.ValidateRegistration(
		"bücher.example.com", "a@b.com", []string{"ns1.x.com", "ns2.x.com"}, allowed)
	require.NoError(t, err)
	assert.Equal(t, "xn--bcher-kva.example.com", domain)
}

func TestNormalizeDomain(t *testing.T) {
	got, err := core.NormalizeDomain("FOO.Example.com")
	require.NoError(t, err)
	assert.Equal(t, "foo.example.com", got)
}

func TestKindHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, core.KindInvalidInput.HTTPStatus())
	assert.Equal(t, 409, core.KindAlreadyRegistered.HTTPStatus())
	assert.Equal(t, 404, core.KindNotFoundOrUnauthorized.HTTPStatus())
	assert.Equal(t, 503, core.KindProviderUnavailable.HTTPStatus())
	assert.Equal(t, 500, core.KindLedgerWriteFailed.HTTPStatus())
	assert.Equal(t, 500, core.KindInternal.HTTPStatus())
}
