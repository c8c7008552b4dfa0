package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// DefaultTimeout bounds dialing and each request when the context carries
// no deadline.
const DefaultTimeout = 10 * time.Second

// LDAP is a Client backed by github.com/go-ldap/ldap.
type LDAP struct {
	conn   *ldap.Conn
	target Target
	bound  bool
	logger *slog.Logger
}

var _ Client = (*LDAP)(nil)

// NewLDAP creates an unconnected client.
func NewLDAP(logger *slog.Logger) *LDAP {
	if logger == nil {
		logger = slog.Default()
	}
	return &LDAP{logger: logger}
}

// Connect dials t and binds when a bind DN is given. Any previous connection
// is closed first.
func (c *LDAP) Connect(ctx context.Context, t Target) error {
	c.Close()

	dialer := &net.Dialer{Timeout: timeout(ctx)}
	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if t.TLS {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{ServerName: t.Host}))
	}
	conn, err := ldap.DialURL(t.URL(), opts...)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.URL(), err)
	}
	conn.SetTimeout(timeout(ctx))

	if t.BindDN != "" {
		if err := conn.Bind(t.BindDN, t.Password); err != nil {
			conn.Close()
			return fmt.Errorf("bind %s: %w", t.BindDN, err)
		}
		c.bound = true
	}
	c.conn = conn
	c.target = t
	c.target.Password = ""
	c.logger.Info("connected", "url", t.URL(), "bind_dn", t.BindDN)
	return nil
}

// Target returns the connected server, without the password.
func (c *LDAP) Target() Target { return c.target }

// Connected reports whether a connection is open.
func (c *LDAP) Connected() bool { return c.conn != nil }

// Bound reports whether the connection is authenticated.
func (c *LDAP) Bound() bool { return c.bound }

// Close closes the connection, if any.
func (c *LDAP) Close() {
	if c.conn == nil {
		return
	}
	c.conn.Close()
	c.conn = nil
	c.bound = false
	c.target = Target{}
}

func (c *LDAP) ready(ctx context.Context) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.conn.SetTimeout(timeout(ctx))
	return nil
}

// Search runs req.
func (c *LDAP) Search(ctx context.Context, req SearchRequest) (*Result, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	filter := req.Filter
	if filter == "" {
		filter = "(objectClass=*)"
	}
	sr, err := c.conn.Search(ldap.NewSearchRequest(
		req.BaseDN, ldapScope(req.Scope), ldap.NeverDerefAliases,
		req.SizeLimit, 0, false, filter, req.Attributes, nil))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.BaseDN, err)
	}
	res := &Result{Entries: make([]*Entry, 0, len(sr.Entries))}
	for _, e := range sr.Entries {
		res.Entries = append(res.Entries, fromLDAP(e))
	}
	return res, nil
}

// Add creates dn with attrs.
func (c *LDAP) Add(ctx context.Context, dn string, attrs []Attribute) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	req := ldap.NewAddRequest(dn, nil)
	for _, a := range attrs {
		req.Attribute(a.Name, a.Values)
	}
	if err := c.conn.Add(req); err != nil {
		return fmt.Errorf("add %s: %w", dn, err)
	}
	return nil
}

// Modify applies changes to dn in a single request.
func (c *LDAP) Modify(ctx context.Context, dn string, changes []Change) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	req := ldap.NewModifyRequest(dn, nil)
	for _, ch := range changes {
		switch ch.Op {
		case ChangeAdd:
			req.Add(ch.Name, ch.Values)
		case ChangeReplace:
			req.Replace(ch.Name, ch.Values)
		case ChangeDelete:
			req.Delete(ch.Name, ch.Values)
		}
	}
	if err := c.conn.Modify(req); err != nil {
		return fmt.Errorf("modify %s: %w", dn, err)
	}
	return nil
}

// Delete removes dn. With recursive set, children are removed first, deepest
// entries first. It returns the number of entries deleted.
func (c *LDAP) Delete(ctx context.Context, dn string, recursive bool) (int, error) {
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	dns := []string{dn}
	if recursive {
		res, err := c.Search(ctx, SearchRequest{BaseDN: dn, Attributes: []string{"1.1"}})
		if err != nil {
			return 0, err
		}
		dns = dns[:0]
		for _, e := range res.Entries {
			dns = append(dns, e.DN)
		}
		sortDeepestFirst(dns)
	}
	deleted := 0
	for _, d := range dns {
		if err := c.conn.Del(ldap.NewDelRequest(d, nil)); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", d, err)
		}
		deleted++
	}
	return deleted, nil
}

// Rename changes the RDN of dn and optionally moves it under newParent.
func (c *LDAP) Rename(ctx context.Context, dn, newRDN, newParent string) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	if err := c.conn.ModifyDN(ldap.NewModifyDNRequest(dn, newRDN, true, newParent)); err != nil {
		return fmt.Errorf("rename %s: %w", dn, err)
	}
	return nil
}

// Compare reads both entries and reports attributes that differ.
func (c *LDAP) Compare(ctx context.Context, dn1, dn2 string, attrs []string) ([]Difference, error) {
	a, err := c.readEntry(ctx, dn1, attrs)
	if err != nil {
		return nil, err
	}
	b, err := c.readEntry(ctx, dn2, attrs)
	if err != nil {
		return nil, err
	}
	return Diff(a, b, attrs), nil
}

// RootDSE reads the server's root entry.
func (c *LDAP) RootDSE(ctx context.Context) (*Entry, error) {
	return c.readEntry(ctx, "", []string{"*", "+"})
}

// Schema reads the subschema entry named by the root DSE.
func (c *LDAP) Schema(ctx context.Context) (*Entry, error) {
	root, err := c.readEntry(ctx, "", []string{"subschemaSubentry"})
	if err != nil {
		return nil, err
	}
	dn := "cn=Subschema"
	if v := root.Get("subschemaSubentry"); len(v) > 0 {
		dn = v[0]
	}
	res, err := c.Search(ctx, SearchRequest{
		BaseDN:     dn,
		Scope:      ScopeBase,
		Filter:     "(objectClass=subschema)",
		Attributes: []string{"objectClasses", "attributeTypes"},
	})
	if err != nil {
		return nil, err
	}
	if res.Len() == 0 {
		return nil, fmt.Errorf("schema %s: no entry", dn)
	}
	return res.Entries[0], nil
}

func (c *LDAP) readEntry(ctx context.Context, dn string, attrs []string) (*Entry, error) {
	res, err := c.Search(ctx, SearchRequest{BaseDN: dn, Scope: ScopeBase, Attributes: attrs})
	if err != nil {
		return nil, err
	}
	if res.Len() == 0 {
		return nil, fmt.Errorf("read %s: no such entry", dn)
	}
	return res.Entries[0], nil
}

func fromLDAP(e *ldap.Entry) *Entry {
	out := &Entry{DN: e.DN, Attributes: make([]Attribute, 0, len(e.Attributes))}
	for _, a := range e.Attributes {
		out.Attributes = append(out.Attributes, Attribute{Name: a.Name, Values: a.Values})
	}
	return out
}

func ldapScope(s Scope) int {
	switch s {
	case ScopeOneLevel:
		return ldap.ScopeSingleLevel
	case ScopeBase:
		return ldap.ScopeBaseObject
	}
	return ldap.ScopeWholeSubtree
}

func timeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// sortDeepestFirst orders DNs so that children precede their parents.
func sortDeepestFirst(dns []string) {
	sort.SliceStable(dns, func(i, j int) bool {
		return depth(dns[i]) > depth(dns[j])
	})
}

func depth(dn string) int {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return 0
	}
	return len(parsed.RDNs)
}
