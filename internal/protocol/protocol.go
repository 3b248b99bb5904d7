// Package protocol implements the record-separated request/response wire
// format spoken by sokuho.
//
// Requests are separated by ASCII 30 (record separator). Each request has
// exactly two fields separated by ASCII 31 (unit separator): a request id
// (any string, possibly empty) and a directory path. Responses use the same
// separators; a response starts with the request id and an is-repo marker
// ("0" or "1") and, only when the marker is "1", carries the thirteen
// status fields documented on Response.
//
// Malformed requests (wrong field count) are reported as
// *MalformedRecordError and skipped; a garbled record must not take the
// daemon down with it.
package protocol

import "fmt"

const (
	// RecordSep separates records on the wire.
	RecordSep = 0x1e
	// FieldSep separates fields within a record.
	FieldSep = 0x1f
)

// Request is a single status query read from the input stream.
type Request struct {
	// ID is opaque to the daemon and echoed back verbatim. May be empty.
	ID string
	// Path is the directory whose enclosing repository is queried.
	Path string
}

// Response is a single status answer. String fields are emitted verbatim,
// minus any embedded separator bytes.
type Response struct {
	ID     string
	IsRepo bool

	// The remaining fields are emitted only when IsRepo is true, in this
	// order, matching the protocol: workdir, head commit, local branch,
	// upstream branch, remote URL, repository state, staged, unstaged,
	// untracked, ahead, behind, first tag, workdir again.
	Workdir        string
	HeadCommit     string
	LocalBranch    string
	UpstreamBranch string
	RemoteURL      string
	State          string
	HasStaged      string // "0" or "1"
	HasUnstaged    string // "-1", "0" or "1"
	HasUntracked   string // "-1", "0" or "1"
	Ahead          int
	Behind         int
	FirstTag       string
}

// MalformedRecordError reports a request record with the wrong number of
// fields.
type MalformedRecordError struct {
	Fields int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed request record: %d fields, want 2", e.Fields)
}
