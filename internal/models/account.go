// Package models defines the data types persisted by the Phoenix client:
// credential accounts, the remote sync endpoint, and sync log entries.
package models

// Algorithm is the HMAC hash used when generating one-time passwords.
// The zero value AlgorithmDefault means the account never specified one
// and the generator falls back to SHA1.
type Algorithm int

const (
	AlgorithmDefault Algorithm = iota
	AlgorithmSHA1
	AlgorithmSHA256
	AlgorithmSHA512
)

// ParseAlgorithm maps the stored string form to an Algorithm.
// Unknown or empty strings map to AlgorithmDefault.
func ParseAlgorithm(s string) Algorithm {
	switch s {
	case "SHA1":
		return AlgorithmSHA1
	case "SHA256":
		return AlgorithmSHA256
	case "SHA512":
		return AlgorithmSHA512
	default:
		return AlgorithmDefault
	}
}

// String returns the wire/storage form. AlgorithmDefault renders as the
// empty string so it round-trips as NULL in the database and is omitted
// from request bodies.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmSHA1:
		return "SHA1"
	case AlgorithmSHA256:
		return "SHA256"
	case AlgorithmSHA512:
		return "SHA512"
	default:
		return ""
	}
}

// Account is one credential record.
//
// Secret always holds ciphertext (see cryptox); the plaintext exists only
// in memory while a code is generated or a record crosses the wire.
//
// The External* fields tie the row to its remote counterpart:
// ExternalID is the remote identity (nil if never synced),
// ExternalLastUpdated is the last remote timestamp known to match this row,
// ExternalHash is the remote-assigned content fingerprint (informational).
//
// DeletedAt marks the row as a tombstone awaiting deletion propagation.
type Account struct {
	ID        string
	Name      string
	Secret    string
	TotpStep  int
	OtpDigits int
	Colour    string
	Algorithm Algorithm

	ExternalID          *int64
	ExternalLastUpdated *int64
	ExternalHash        *string
	DeletedAt           *int64
}

// Linked reports whether the account has a remote counterpart.
func (a *Account) Linked() bool {
	return a.ExternalID != nil
}
