package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const minimalDoc = `<?xml version="1.0"?><w:document><w:body><w:p><w:r><w:t>Hello</w:t></w:r></w:p></w:body></w:document>`

func TestOpen(t *testing.T) {
	t.Run("ValidContainer", func(t *testing.T) {
		data := buildZip(t, map[string]string{
			"word/document.xml":   minimalDoc,
			"word/styles.xml":     "<w:styles/>",
			"[Content_Types].xml": "<Types/>",
		})

		c, err := Open(data, DefaultLimits(), zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, minimalDoc, string(c.Document()))
	})

	t.Run("NotAZip", func(t *testing.T) {
		_, err := Open([]byte("plain text, no archive here"), DefaultLimits(), nil)
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
	})

	t.Run("MissingDocumentEntry", func(t *testing.T) {
		data := buildZip(t, map[string]string{"word/styles.xml": "<w:styles/>"})
		_, err := Open(data, DefaultLimits(), nil)
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr)
		assert.Contains(t, err.Error(), "word/document.xml")
	})

	t.Run("PathTraversal", func(t *testing.T) {
		for _, name := range []string{"../evil.xml", "/abs.xml", "word\\document.xml", "a/../../b"} {
			data := buildZip(t, map[string]string{
				name:                "x",
				"word/document.xml": minimalDoc,
			})
			_, err := Open(data, DefaultLimits(), nil)
			var secErr *SecurityError
			require.ErrorAs(t, err, &secErr, "entry %q should be rejected", name)
		}
	})

	t.Run("EntryTooLarge", func(t *testing.T) {
		big := strings.Repeat("A", 2048)
		data := buildZip(t, map[string]string{"word/document.xml": big})

		limits := Limits{MaxEntryBytes: 1024, MaxTotalBytes: 50 * 1024}
		_, err := Open(data, limits, nil)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
		assert.Contains(t, err.Error(), "per-entry limit")
	})

	t.Run("AggregateTooLarge", func(t *testing.T) {
		entries := map[string]string{"word/document.xml": strings.Repeat("A", 900)}
		for _, n := range []string{"a.xml", "b.xml", "c.xml"} {
			entries["word/"+n] = strings.Repeat("B", 900)
		}
		limits := Limits{MaxEntryBytes: 1024, MaxTotalBytes: 2048}
		_, err := Open(buildZip(t, entries), limits, nil)
		var secErr *SecurityError
		require.ErrorAs(t, err, &secErr)
		assert.Contains(t, err.Error(), "aggregate")
	})
}

func TestRewrite(t *testing.T) {
	original := buildZip(t, map[string]string{
		"word/document.xml":        minimalDoc,
		"word/styles.xml":          "<w:styles>untouched</w:styles>",
		"word/media/image1.png":    "\x89PNG fake image bytes",
		"docProps/core.xml":        "<coreProperties/>",
		"word/_rels/document.rels": "<Relationships/>",
	})

	c, err := Open(original, DefaultLimits(), zap.NewNop())
	require.NoError(t, err)

	newDoc := strings.Replace(minimalDoc, "Hello", "Goodbye", 1)
	out, err := c.Rewrite([]byte(newDoc))
	require.NoError(t, err)

	// input bytes untouched
	reread, err := Open(original, DefaultLimits(), nil)
	require.NoError(t, err)
	assert.Equal(t, minimalDoc, string(reread.Document()))

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)

	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		got[f.Name] = string(data)
	}

	assert.Equal(t, newDoc, got["word/document.xml"])
	assert.Equal(t, "<w:styles>untouched</w:styles>", got["word/styles.xml"])
	assert.Equal(t, "\x89PNG fake image bytes", got["word/media/image1.png"])
	assert.Equal(t, "<coreProperties/>", got["docProps/core.xml"])
	assert.Len(t, got, 5)
}

func TestErrorTypes(t *testing.T) {
	wrapped := &FormatError{Msg: "outer", Err: errors.New("inner")}
	assert.Contains(t, wrapped.Error(), "outer")
	assert.Contains(t, wrapped.Error(), "inner")
	assert.EqualError(t, errors.Unwrap(wrapped), "inner")

	sec := &SecurityError{Msg: "bad path"}
	assert.Contains(t, sec.Error(), "bad path")
}
