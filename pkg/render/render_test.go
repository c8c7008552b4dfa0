package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psaab/ldapsh/pkg/directory"
)

func sampleEntries() []*directory.Entry {
	return []*directory.Entry{
		{DN: "ou=people,dc=example,dc=com", Attributes: []directory.Attribute{
			{Name: "ou", Values: []string{"people"}},
		}},
		{DN: "uid=jdoe,ou=people,dc=example,dc=com", Attributes: []directory.Attribute{
			{Name: "cn", Values: []string{"John Doe"}},
			{Name: "mail", Values: []string{"jdoe@example.com", "john@example.com"}},
		}},
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	require.NoError(t, c.Entries(&buf, sampleEntries(), FormatTable))
	out := buf.String()
	assert.Contains(t, out, "uid=jdoe,ou=people,dc=example,dc=com")
	assert.Contains(t, out, "john@example.com")
	assert.Contains(t, out, "2 entries")

	buf.Reset()
	require.NoError(t, c.Entries(&buf, nil, FormatTable))
	assert.Equal(t, "No entries found\n", buf.String())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Entries(&buf, sampleEntries(), FormatJSON))
	var got []jsonEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, []string{"jdoe@example.com", "john@example.com"}, got[1].Attributes["mail"])
}

func TestLDIF(t *testing.T) {
	var buf bytes.Buffer
	entries := append(sampleEntries(), &directory.Entry{DN: "cn=x", Attributes: []directory.Attribute{
		{Name: "description", Values: []string{" leading space"}},
	}})
	require.NoError(t, NewConsole(&buf).Entries(&buf, entries, FormatLDIF))
	out := buf.String()
	assert.Contains(t, out, "dn: uid=jdoe,ou=people,dc=example,dc=com\ncn: John Doe\n")
	assert.Contains(t, out, "description:: IGxlYWRpbmcgc3BhY2U=\n")
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Entries(&buf, sampleEntries(), FormatCSV))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "dn,ou,cn,mail", lines[0])
	assert.Equal(t, `"uid=jdoe,ou=people,dc=example,dc=com",,John Doe,jdoe@example.com;john@example.com`, lines[2])
}

func TestTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Entries(&buf, sampleEntries(), FormatTree))
	assert.Equal(t, "ou=people,dc=example,dc=com\n└─ uid=jdoe\n", buf.String())
}

func TestDifferences(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	require.NoError(t, c.Differences(&buf, "uid=a", "uid=b", nil, FormatTable))
	assert.Equal(t, "Entries are identical\n", buf.String())

	buf.Reset()
	require.NoError(t, c.Differences(&buf, "uid=a", "uid=b",
		[]directory.Difference{{Name: "cn", Left: []string{"A"}, Right: []string{"B"}}}, FormatTable))
	assert.Contains(t, buf.String(), "cn")
}

func TestSplitDN(t *testing.T) {
	assert.Equal(t, []string{`cn=Doe\, John`, "dc=x"}, splitDN(`cn=Doe\, John,dc=x`))
}
