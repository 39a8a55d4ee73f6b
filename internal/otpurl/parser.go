// Package otpurl converts between otpauth:// URLs and account parameters,
// for importing from and exporting to other authenticator apps.
package otpurl

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/phoenixotp/phoenix/internal/models"
)

// identifierLimit caps imported account names.
const identifierLimit = 255

var validRe = regexp.MustCompile(`^otpauth://([ht]otp)/(?:[a-zA-Z0-9%]+:)?([^?]+)\?(.*secret).*`)

// Parsed carries the account parameters extracted from an otpauth URL.
// Secret is plaintext; the caller encrypts before persisting.
type Parsed struct {
	Name      string
	Secret    string
	Digits    int
	Step      int
	Algorithm models.Algorithm
}

// Valid reports whether raw looks like an importable otpauth URL with a
// secret parameter.
func Valid(raw string) bool {
	return validRe.MatchString(raw)
}

// Parse extracts account parameters from an otpauth URL. Missing digits and
// period fall back to the usual 6/30 defaults; a missing or unknown
// algorithm maps to AlgorithmDefault. Call Valid first: Parse on a
// non-otpauth URL yields an unusable zero-secret result.
func Parse(raw string) Parsed {
	p := Parsed{
		Name:      "Unidentified",
		Digits:    6,
		Step:      30,
		Algorithm: models.AlgorithmDefault,
	}

	u, err := url.Parse(raw)
	if err != nil {
		return p
	}

	if name := identifier(u); name != "" {
		p.Name = name
	}

	q := u.Query()
	p.Secret = q.Get("secret")
	if d, err := strconv.Atoi(q.Get("digits")); err == nil {
		p.Digits = d
	}
	if s, err := strconv.Atoi(q.Get("period")); err == nil {
		p.Step = s
	}
	p.Algorithm = models.ParseAlgorithm(q.Get("algorithm"))

	return p
}

func identifier(u *url.URL) string {
	// otpauth://totp/<label>?... — the host part is the type, the path the
	// label. url.Parse already percent-decodes the path.
	label := strings.TrimPrefix(u.Path, "/")
	if label == "" {
		return ""
	}

	// a "Issuer:account" label keeps only the account part
	if _, account, ok := strings.Cut(label, ":"); ok && account != "" {
		label = account
	}

	if len(label) > identifierLimit {
		label = label[:identifierLimit]
	}
	return label
}
