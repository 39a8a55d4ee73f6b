package sync

// Status is the result of comparing a local row's remote-link timestamp
// against the timestamp the manifest reports for the same record.
type Status int

const (
	// StatusLocalOutOfDate means the remote copy is newer (or the record
	// has never been pulled) and the local row must be overwritten.
	StatusLocalOutOfDate Status = iota
	// StatusRemoteOutOfDate means the local row was edited after the last
	// pull and the remote copy must be overwritten.
	StatusRemoteOutOfDate
	// StatusUpToDate means both sides carry the same revision.
	StatusUpToDate
)

func (s Status) String() string {
	switch s {
	case StatusLocalOutOfDate:
		return "local out of date"
	case StatusRemoteOutOfDate:
		return "remote out of date"
	default:
		return "up to date"
	}
}

// Classify compares the local link timestamp with the remote one. A nil
// local timestamp means the row has never been reconciled against this
// record, which counts as local out of date.
func Classify(local *int64, remote int64) Status {
	switch {
	case local == nil || *local < remote:
		return StatusLocalOutOfDate
	case *local > remote:
		return StatusRemoteOutOfDate
	default:
		return StatusUpToDate
	}
}
