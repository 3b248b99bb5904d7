package protocol

import (
	"bufio"
	"bytes"
	"io"
)

// maxRecordSize bounds a single request record. Paths longer than this are
// not representable on any supported system.
const maxRecordSize = 1 << 20

// Decoder reads request records from a byte stream.
type Decoder struct {
	sc *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxRecordSize)
	sc.Split(splitRecords)
	return &Decoder{sc: sc}
}

// Next returns the next request. It returns io.EOF at clean end of input
// and *MalformedRecordError for a record with the wrong field count; the
// caller may skip such records and keep reading.
func (d *Decoder) Next() (Request, error) {
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			return Request{}, err
		}
		return Request{}, io.EOF
	}
	fields := bytes.Split(d.sc.Bytes(), []byte{FieldSep})
	if len(fields) != 2 {
		return Request{}, &MalformedRecordError{Fields: len(fields)}
	}
	return Request{ID: string(fields[0]), Path: string(fields[1])}, nil
}

// splitRecords is a bufio.SplitFunc yielding RecordSep-terminated records.
// A non-empty trailing record without a terminator is yielded as-is at EOF.
func splitRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, RecordSep); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
