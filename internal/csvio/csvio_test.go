package csvio

import (
	"bytes"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/csv-synth/pkg/models"
)

func values(col models.Column) []string {
	out := make([]string, len(col.Values))
	for i, v := range col.Values {
		if !v.Valid {
			out[i] = "<nil>"
			continue
		}
		out[i] = v.String
	}
	return out
}

func TestRead(t *testing.T) {
	in := "\xEF\xBB\xBFid,status,note\n1,A,hello\n2,,NA\n3,B,\"quoted, text\"\n"

	ds, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "status", "note"}, ds.ColumnNames())
	assert.Equal(t, 3, ds.NumRows())
	assert.Equal(t, []string{"1", "2", "3"}, values(ds.Columns[0]))
	assert.Equal(t, []string{"A", "<nil>", "B"}, values(ds.Columns[1]))
	assert.Equal(t, []string{"hello", "<nil>", "quoted, text"}, values(ds.Columns[2]))
}

func TestReadOptions(t *testing.T) {
	in := "a;b\n-;x\ny;-\n"

	ds, err := Read(strings.NewReader(in), Options{Delimiter: ';', NullValues: []string{"-"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"<nil>", "y"}, values(ds.Columns[0]))
	assert.Equal(t, []string{"x", "<nil>"}, values(ds.Columns[1]))
}

func TestReadLatin1(t *testing.T) {
	// "café" encoded as ISO-8859-1
	in := []byte("name\ncaf\xe9\n")

	ds, err := Read(bytes.NewReader(in), Options{Encoding: "latin1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"café"}, values(ds.Columns[0]))

	_, err = Read(bytes.NewReader(in), Options{Encoding: "no-such-encoding"})
	assert.Error(t, err)
}

func TestReadHeaderDedup(t *testing.T) {
	ds, err := Read(strings.NewReader("a,a,,a\n1,2,3,4\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2"}, ds.ColumnNames())
}

func TestReadRaggedRows(t *testing.T) {
	ds, err := Read(strings.NewReader("a,b,c\n1,2\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"<nil>"}, values(ds.Columns[2]))

	_, err = Read(strings.NewReader("a,b\n1,2,3\n"), Options{})
	assert.ErrorContains(t, err, "header has 2")
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""), Options{})
	assert.True(t, errors.Is(err, ErrEmptyInput))

	ds, err := Read(strings.NewReader("a,b\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.NumRows())
	assert.Len(t, ds.Columns, 2)
}

func TestWrite(t *testing.T) {
	ds := &models.Dataset{Columns: []models.Column{
		{Name: "id", Values: []sql.NullString{{String: "1", Valid: true}, {String: "2", Valid: true}}},
		{Name: "note", Values: []sql.NullString{{String: "a,b", Valid: true}, {}}},
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ds, Options{}))
	assert.Equal(t, "id,note\n1,\"a,b\"\n2,\n", buf.String())

	back, err := Read(&buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, ds, back)
}

func TestWriteEncoding(t *testing.T) {
	ds := &models.Dataset{Columns: []models.Column{
		{Name: "name", Values: []sql.NullString{{String: "café", Valid: true}}},
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ds, Options{Encoding: "latin1", Delimiter: '\t'}))
	assert.Equal(t, []byte("name\ncaf\xe9\n"), buf.Bytes())
}
