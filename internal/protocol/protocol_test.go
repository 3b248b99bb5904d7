package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder(t *testing.T) {
	t.Run("reads records in order", func(t *testing.T) {
		in := strings.NewReader("a\x1f/tmp/x\x1eb\x1f/tmp/y\x1e")
		dec := NewDecoder(in)

		req, err := dec.Next()
		require.NoError(t, err)
		assert.Equal(t, Request{ID: "a", Path: "/tmp/x"}, req)

		req, err = dec.Next()
		require.NoError(t, err)
		assert.Equal(t, Request{ID: "b", Path: "/tmp/y"}, req)

		_, err = dec.Next()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("empty request id", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader("\x1f/tmp\x1e"))
		req, err := dec.Next()
		require.NoError(t, err)
		assert.Empty(t, req.ID)
		assert.Equal(t, "/tmp", req.Path)
	})

	t.Run("trailing record without separator", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader("id\x1f/tmp"))
		req, err := dec.Next()
		require.NoError(t, err)
		assert.Equal(t, Request{ID: "id", Path: "/tmp"}, req)
	})

	t.Run("malformed record is reported and skipped", func(t *testing.T) {
		in := strings.NewReader("no-field-sep\x1ea\x1fb\x1fc\x1eok\x1f/tmp\x1e")
		dec := NewDecoder(in)

		_, err := dec.Next()
		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, 1, malformed.Fields)

		_, err = dec.Next()
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, 3, malformed.Fields)

		req, err := dec.Next()
		require.NoError(t, err)
		assert.Equal(t, "ok", req.ID)
	})

	t.Run("empty input", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader(""))
		_, err := dec.Next()
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestEncoder(t *testing.T) {
	fields := func(buf *bytes.Buffer) [][]string {
		var records [][]string
		for _, rec := range bytes.Split(buf.Bytes(), []byte{RecordSep}) {
			if len(rec) == 0 {
				continue
			}
			var fs []string
			for _, f := range bytes.Split(rec, []byte{FieldSep}) {
				fs = append(fs, string(f))
			}
			records = append(records, fs)
		}
		return records
	}

	t.Run("non-repo response has two fields", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		require.NoError(t, enc.Encode(Response{ID: "req-1"}))

		recs := fields(&buf)
		require.Len(t, recs, 1)
		assert.Equal(t, []string{"req-1", "0"}, recs[0])
	})

	t.Run("repo response has fifteen fields in order", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		require.NoError(t, enc.Encode(Response{
			ID:             "id",
			IsRepo:         true,
			Workdir:        "/repo",
			HeadCommit:     strings.Repeat("a", 40),
			LocalBranch:    "main",
			UpstreamBranch: "main",
			RemoteURL:      "git@example.com:x/y.git",
			State:          "merging",
			HasStaged:      "1",
			HasUnstaged:    "0",
			HasUntracked:   "-1",
			Ahead:          2,
			Behind:         3,
			FirstTag:       "v1.0.0",
		}))

		recs := fields(&buf)
		require.Len(t, recs, 1)
		assert.Equal(t, []string{
			"id", "1", "/repo", strings.Repeat("a", 40), "main", "main",
			"git@example.com:x/y.git", "merging", "1", "0", "-1", "2", "3",
			"v1.0.0", "/repo",
		}, recs[0])
	})

	t.Run("empty fields keep their position", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		require.NoError(t, enc.Encode(Response{
			ID:           "",
			IsRepo:       true,
			Workdir:      "/repo",
			HasStaged:    "0",
			HasUnstaged:  "0",
			HasUntracked: "0",
		}))

		recs := fields(&buf)
		require.Len(t, recs, 1)
		require.Len(t, recs[0], 15)
		assert.Empty(t, recs[0][0])
		assert.Equal(t, "/repo", recs[0][2])
		assert.Empty(t, recs[0][4]) // local branch
	})

	t.Run("separator bytes never leak from field values", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		require.NoError(t, enc.Encode(Response{ID: "a\x1eb\x1fc"}))

		recs := fields(&buf)
		require.Len(t, recs, 1)
		assert.Equal(t, []string{"abc", "0"}, recs[0])
	})
}
