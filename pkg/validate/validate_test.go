package validate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psaab/ldapsh/pkg/session"
)

func newTestValidator(t *testing.T) (*Validator, *session.Context) {
	t.Helper()
	ctx := session.New(session.WithID("test"))
	return New(ctx), ctx
}

func TestValidateSearch(t *testing.T) {
	v, _ := newTestValidator(t)

	tests := []struct {
		line       string
		warning    string
		suggestion string
		validation string
	}{
		{
			line:       "search ldap.example.com 'dc=example,dc=com' objectClass=person",
			warning:    "LDAP filter should be enclosed in parentheses",
			suggestion: "Try: search ldap.example.com 'dc=example,dc=com' '(objectClass=person)'",
		},
		{
			line:       `search h "dc=example,dc=com" x`,
			warning:    "LDAP filter should be enclosed in parentheses",
			suggestion: `Try: search h "dc=example,dc=com" '(x)'`,
		},
		{
			line:       "search ldap.example.com 'dc=example,dc=com' '(objectClass=person)'",
			validation: "Search command looks valid",
		},
		{
			line:       "search ldap.example.com 'dc=example,dc=com'",
			validation: "Search command looks valid",
		},
		{
			line:       "search ldap.example.com 'dc=example,dc=com' --json",
			validation: "Search command looks valid",
		},
		{
			line:       "search h 'ou=my people,dc=x' cn=a",
			warning:    "LDAP filter should be enclosed in parentheses",
			suggestion: "Try: search h 'ou=my people,dc=x' '(cn=a)'",
		},
	}
	for _, tt := range tests {
		r := v.Validate(tt.line)
		require.True(t, r.OK(), tt.line)
		assert.Equal(t, "search", r.Command)
		assert.Equal(t, tt.warning, r.Warning, tt.line)
		assert.Equal(t, tt.suggestion, r.Suggestion, tt.line)
		assert.Equal(t, tt.validation, r.Validation, tt.line)
	}

	r := v.Validate("search ldap.example.com 'dc=example,dc=com'")
	assert.Equal(t, "Would search ldap.example.com with base DN dc=example,dc=com", r.Preview)
}

func TestValidateDelete(t *testing.T) {
	v, _ := newTestValidator(t)

	plain := v.Validate("delete h 'cn=x,dc=y'")
	require.True(t, plain.OK())
	assert.Equal(t, "Note: This will only delete the entry if it has no children", plain.Warning)
	assert.Equal(t, "Add --recursive flag to delete the entry and all its children", plain.Suggestion)

	for _, flag := range []string{"--recursive", "-r"} {
		rec := v.Validate("delete h 'cn=x,dc=y' " + flag)
		assert.Equal(t, "This will delete the entry and all its children recursively", rec.Warning)
		assert.Empty(t, rec.Suggestion)
		assert.NotEqual(t, plain.Warning, rec.Warning)
		assert.Equal(t, "Would recursively delete the specified entry and all children", rec.Preview)
	}

	// A DN that merely contains "-r" is not the flag.
	r := v.Validate("delete h 'cn=a-r,dc=y'")
	assert.Equal(t, plain.Warning, r.Warning)
}

func TestValidateGeneric(t *testing.T) {
	v, _ := newTestValidator(t)
	tests := map[string]string{
		"add h 'cn=x,dc=y' --class person":       "Add command structure looks valid",
		"modify h 'cn=x,dc=y' --replace sn=Z":    "Modify command structure looks valid",
		"rename h 'cn=x,dc=y' cn=z":              "Rename command structure looks valid",
		"info h":                                 "Command structure looks valid",
		"schema h person":                        "Command structure looks valid",
		"compare h 'cn=a,dc=x' 'cn=b,dc=x' -a cn": "Command structure looks valid",
	}
	for line, want := range tests {
		r := v.Validate(line)
		require.True(t, r.OK(), line)
		assert.Equal(t, want, r.Validation, line)
		assert.Empty(t, r.Warning, line)
		assert.NotEmpty(t, r.Preview, line)
	}
	assert.Equal(t, "Command would execute: info h", v.Validate("info h").Preview)
}

func TestValidateErrors(t *testing.T) {
	v, _ := newTestValidator(t)

	r := v.Validate("serch h b")
	assert.False(t, r.OK())
	assert.Equal(t, "Command 'serch' not found. Did you mean 'search'?", r.Error)
	assert.Contains(t, r.SuggestedCommands, "search")

	r = v.Validate("rename h dn")
	assert.False(t, r.OK())
	assert.Equal(t, "rename <host> <dn> <new_rdn> [options]", r.Syntax)

	r = v.Validate("")
	assert.Equal(t, "Empty command", r.Error)
}

func TestValidateDoesNotMutateSession(t *testing.T) {
	v, ctx := newTestValidator(t)
	v.Validate("search h b (cn=x)")
	v.Validate("bogus")
	assert.Empty(t, ctx.History())
	assert.Empty(t, ctx.Current().Command)
	assert.Empty(t, ctx.Errors())
}

func TestPrint(t *testing.T) {
	v, _ := newTestValidator(t)
	var buf bytes.Buffer
	Print(&buf, v.Validate("delete h dn"))
	out := buf.String()
	assert.Contains(t, out, "Delete command structure looks valid")
	assert.Contains(t, out, "warning: Note: This will only delete the entry if it has no children")
	assert.Contains(t, out, "Preview: Would delete the specified entry")

	buf.Reset()
	Print(&buf, v.Validate("serch h b"))
	assert.Contains(t, buf.String(), "error: Command 'serch' not found.")
	assert.Contains(t, buf.String(), "Did you mean: search")
}
