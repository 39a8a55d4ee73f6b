package syncapi

import "encoding/json"

// ManifestEntry is one remote record identity with its last update time,
// as listed by GET /api/records/manifest.
type ManifestEntry struct {
	ID        int64 `json:"id"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Record is the compact comparison triple the server returns after a push,
// replace, or as part of a verbose record.
type Record struct {
	ID        int64  `json:"id"`
	SyncHash  string `json:"syncHash"`
	UpdatedAt int64  `json:"updatedAt"`
}

// VerboseRecord is the full transfer payload for one remote record.
// Secret is plaintext on the wire; transport security is the server
// deployment's concern.
type VerboseRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Secret    string `json:"secret"`
	TotpStep  int    `json:"totpStep"`
	OtpDigits int    `json:"otpDigits"`
	Algorithm string `json:"algorithm"`
	SyncHash  string `json:"syncHash"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Compact projects the comparison triple out of a verbose record.
func (v *VerboseRecord) Compact() Record {
	return Record{ID: v.ID, SyncHash: v.SyncHash, UpdatedAt: v.UpdatedAt}
}

// RecordPayload is the request body for pushing or replacing a record.
// Secret is decrypted just before the call and discarded after it.
type RecordPayload struct {
	Name          string `json:"name"`
	Secret        string `json:"secret"`
	OtpDigits     int    `json:"otpDigits"`
	TotpStep      int    `json:"totpStep"`
	TotpAlgorithm string `json:"totpAlgorithm,omitempty"`
}

// Response envelopes. The version field is accepted but not used to select
// an alternate schema, so its type is left opaque.
type tokenResponse struct {
	Token string `json:"token"`
}

type manifestResponse struct {
	Version json.RawMessage `json:"version"`
	Data    []ManifestEntry `json:"data"`
}

type recordResponse struct {
	Version json.RawMessage `json:"version"`
	Data    Record          `json:"data"`
}

type verboseRecordResponse struct {
	Version json.RawMessage `json:"version"`
	Data    VerboseRecord   `json:"data"`
}
