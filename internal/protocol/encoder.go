package protocol

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Encoder writes response records to a byte stream. Each record is flushed
// as soon as it is written: clients block on the response before issuing
// the next request.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes one response record. Fields are emitted in protocol order;
// when IsRepo is false only the id and the "0" marker are written. Empty
// fields still occupy their position.
func (e *Encoder) Encode(r Response) error {
	fields := []string{r.ID, boolField(r.IsRepo)}
	if r.IsRepo {
		fields = append(fields,
			r.Workdir,
			r.HeadCommit,
			r.LocalBranch,
			r.UpstreamBranch,
			r.RemoteURL,
			r.State,
			r.HasStaged,
			r.HasUnstaged,
			r.HasUntracked,
			strconv.Itoa(r.Ahead),
			strconv.Itoa(r.Behind),
			r.FirstTag,
			r.Workdir,
		)
	}
	for i, f := range fields {
		if i > 0 {
			if err := e.w.WriteByte(FieldSep); err != nil {
				return err
			}
		}
		if _, err := e.w.WriteString(sanitize(f)); err != nil {
			return err
		}
	}
	if err := e.w.WriteByte(RecordSep); err != nil {
		return err
	}
	return e.w.Flush()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// sanitize strips separator bytes so a field value can never break record
// framing.
func sanitize(s string) string {
	if !strings.ContainsAny(s, "\x1e\x1f") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == RecordSep || r == FieldSep {
			return -1
		}
		return r
	}, s)
}
