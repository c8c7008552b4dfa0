package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/psaab/ldapsh/pkg/directory"
	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/render"
)

// OperationResult is recorded in the session after a write operation.
type OperationResult struct {
	Command string
	DN      string
	Entries int
}

// defaultFilter is used when search is given no filter.
const defaultFilter = "(objectClass=*)"

func (s *Shell) handleDirectory(ctx context.Context, name string, args []string) error {
	switch name {
	case "search":
		return s.search(ctx, args)
	case "info":
		return s.info(ctx, args)
	case "compare":
		return s.compare(ctx, args)
	case "schema":
		return s.schema(ctx, args)
	case "add":
		return s.add(ctx, args)
	case "modify":
		return s.modify(ctx, args)
	case "delete":
		return s.remove(ctx, args)
	case "rename":
		return s.rename(ctx, args)
	}
	return fmt.Errorf("%s: not implemented", name)
}

// outputFlags registers the output format switches used by read commands.
type outputFlags struct {
	json, ldif, csv, tree *bool
}

func addOutputFlags(fs *pflag.FlagSet, ldif, csv, tree bool) outputFlags {
	var f outputFlags
	f.json = fs.Bool("json", false, "JSON output")
	if ldif {
		f.ldif = fs.Bool("ldif", false, "LDIF output")
	}
	if csv {
		f.csv = fs.Bool("csv", false, "CSV output")
	}
	if tree {
		f.tree = fs.Bool("tree", false, "DN tree output")
	}
	return f
}

func (f outputFlags) format() render.Format {
	switch {
	case f.json != nil && *f.json:
		return render.FormatJSON
	case f.ldif != nil && *f.ldif:
		return render.FormatLDIF
	case f.csv != nil && *f.csv:
		return render.FormatCSV
	case f.tree != nil && *f.tree:
		return render.FormatTree
	}
	return render.FormatTable
}

// parse runs fs over args and checks the positional count.
func parse(name string, fs *pflag.FlagSet, args []string, min int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, wrapFlagError(name, err)
	}
	pos := fs.Args()
	if len(pos) < min {
		return nil, fmt.Errorf("%s: expected at least %d arguments, got %d", name, min, len(pos))
	}
	return pos, nil
}

// ensureConnected reuses the open connection when it points at host and
// otherwise opens a new one. bindDN, when set, forces a rebind.
func (s *Shell) ensureConnected(ctx context.Context, host, bindDN string) error {
	if s.client.Connected() && strings.EqualFold(s.client.Target().Host, host) &&
		(bindDN == "" || bindDN == s.client.Target().BindDN) {
		return nil
	}
	t := directory.Target{Host: host, BindDN: bindDN}
	if strings.EqualFold(host, s.defaults.Host) {
		t.Port = s.defaults.Port
		t.TLS = s.defaults.TLS
		if bindDN == "" {
			t.BindDN = s.defaults.BindDN
		}
	}
	return s.connect(ctx, t)
}

func (s *Shell) search(ctx context.Context, args []string) error {
	fs := newFlagSet("search")
	attrs := fs.StringArrayP("attributes", "a", nil, "attribute to return")
	scope := fs.String("scope", "sub", "search scope (base, one, sub)")
	limit := fs.Int("limit", 0, "maximum entries")
	out := addOutputFlags(fs, true, true, true)
	pos, err := parse("search", fs, args, 2)
	if err != nil {
		return err
	}
	sc, err := directory.ParseScope(*scope)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	host, base := pos[0], pos[1]
	filter := defaultFilter
	if len(pos) > 2 {
		filter = pos[2]
	}

	if err := s.ensureConnected(ctx, host, ""); err != nil {
		return err
	}
	cctx, cancel := s.timeout(ctx)
	defer cancel()
	res, err := s.client.Search(cctx, directory.SearchRequest{
		BaseDN:     base,
		Filter:     filter,
		Attributes: *attrs,
		Scope:      sc,
		SizeLimit:  *limit,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	s.ctx.UpdateSearchResults(res)
	s.hist.Add(queryhistory.Host, host)
	s.hist.Add(queryhistory.BaseDN, base)
	s.hist.Add(queryhistory.Filter, filter)
	return s.renderer.Entries(s.out, res.Entries, out.format())
}

func (s *Shell) info(ctx context.Context, args []string) error {
	fs := newFlagSet("info")
	user := fs.StringP("user", "u", "", "bind DN")
	out := addOutputFlags(fs, false, false, false)
	pos, err := parse("info", fs, args, 1)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(ctx, pos[0], *user); err != nil {
		return err
	}
	cctx, cancel := s.timeout(ctx)
	defer cancel()
	e, err := s.client.RootDSE(cctx)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	s.ctx.UpdateOperationResult(OperationResult{Command: "info", Entries: 1})
	return s.renderer.Entry(s.out, e, out.format())
}

func (s *Shell) compare(ctx context.Context, args []string) error {
	fs := newFlagSet("compare")
	attrs := fs.StringArrayP("attributes", "a", nil, "attribute to compare")
	out := addOutputFlags(fs, false, false, false)
	pos, err := parse("compare", fs, args, 3)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(ctx, pos[0], ""); err != nil {
		return err
	}
	cctx, cancel := s.timeout(ctx)
	defer cancel()
	diffs, err := s.client.Compare(cctx, pos[1], pos[2], *attrs)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	s.ctx.UpdateOperationResult(OperationResult{Command: "compare", DN: pos[1], Entries: 2})
	return s.renderer.Differences(s.out, pos[1], pos[2], diffs, out.format())
}

func (s *Shell) schema(ctx context.Context, args []string) error {
	fs := newFlagSet("schema")
	attr := fs.String("attr", "", "attribute type to show")
	out := addOutputFlags(fs, false, false, false)
	pos, err := parse("schema", fs, args, 1)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(ctx, pos[0], ""); err != nil {
		return err
	}
	cctx, cancel := s.timeout(ctx)
	defer cancel()
	e, err := s.client.Schema(cctx)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	view := &directory.Entry{DN: e.DN}
	if len(pos) > 1 {
		defs := definitions(e.Get("objectClasses"), pos[1])
		if len(defs) == 0 {
			return fmt.Errorf("schema: object class %q not found", pos[1])
		}
		view.Attributes = append(view.Attributes, directory.Attribute{Name: "objectClasses", Values: defs})
	}
	if *attr != "" {
		defs := definitions(e.Get("attributeTypes"), *attr)
		if len(defs) == 0 {
			return fmt.Errorf("schema: attribute type %q not found", *attr)
		}
		view.Attributes = append(view.Attributes, directory.Attribute{Name: "attributeTypes", Values: defs})
	}
	if len(view.Attributes) == 0 {
		view = e
	}
	s.ctx.UpdateOperationResult(OperationResult{Command: "schema", DN: e.DN, Entries: 1})
	return s.renderer.Entry(s.out, view, out.format())
}

// definitions returns the schema definitions whose NAME list contains name.
func definitions(defs []string, name string) []string {
	var out []string
	for _, d := range defs {
		for _, n := range schemaNames(d) {
			if strings.EqualFold(n, name) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// schemaNames extracts the names from "( oid NAME 'a' ... )" or
// "( oid NAME ( 'a' 'b' ) ... )".
func schemaNames(def string) []string {
	i := strings.Index(def, "NAME ")
	if i < 0 {
		return nil
	}
	s := strings.TrimSpace(def[i+len("NAME "):])
	if strings.HasPrefix(s, "(") {
		if j := strings.Index(s, ")"); j >= 0 {
			s = s[1:j]
		}
	} else if strings.HasPrefix(s, "'") {
		if j := strings.Index(s[1:], "'"); j >= 0 {
			s = s[:j+2]
		}
	}
	var names []string
	for _, f := range strings.Fields(s) {
		if n := strings.Trim(f, "'"); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (s *Shell) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	classes := fs.StringArray("class", nil, "object class")
	assigns := fs.StringArray("attr", nil, "attribute as name=value")
	file := fs.String("json", "", "JSON file of attributes")
	pos, err := parse("add", fs, args, 2)
	if err != nil {
		return err
	}

	var attrs []directory.Attribute
	if len(*classes) > 0 {
		attrs = append(attrs, directory.Attribute{Name: "objectClass", Values: *classes})
	}
	if *file != "" {
		fromFile, err := readAttributeFile(*file)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		attrs = append(attrs, fromFile...)
	}
	parsed, err := directory.ParseAssignments(*assigns)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	attrs = append(attrs, parsed...)
	if len(attrs) == 0 {
		return fmt.Errorf("add: no attributes given (use --class and --attr)")
	}

	if err := s.ensureConnected(ctx, pos[0], ""); err != nil {
		return err
	}
	cctx, cancel := s.timeout(ctx)
	defer cancel()
	if err := s.client.Add(cctx, pos[1], attrs); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	s.ctx.UpdateOperationResult(OperationResult{Command: "add", DN: pos[1], Entries: 1})
	s.hist.Add(queryhistory.Host, pos[0])
	fmt.Fprintf(s.out, "Added %s\n", pos[1])
	return nil
}

// readAttributeFile reads {"name": "value"} or {"name": ["v1", "v2"]}.
func readAttributeFile(path string) ([]directory.Attribute, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var attrs []directory.Attribute
	for name, v := range raw {
		switch v := v.(type) {
		case string:
			attrs = append(attrs, directory.Attribute{Name: name, Values: []string{v}})
		case []any:
			a := directory.Attribute{Name: name}
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("parse %s: attribute %s: values must be strings", path, name)
				}
				a.Values = append(a.Values, str)
			}
			attrs = append(attrs, a)
		default:
			return nil, fmt.Errorf("parse %s: attribute %s: values must be strings", path, name)
		}
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
	return attrs, nil
}

func (s *Shell) modify(ctx context.Context, args []string) error {
	fs := newFlagSet("modify")
	adds := fs.StringArray("add", nil, "add name=value")
	replaces := fs.StringArray("replace", nil, "replace name=value")
	deletes := fs.StringArray("delete", nil, "delete name or name=value")
	pos, err := parse("modify", fs, args, 2)
	if err != nil {
		return err
	}

	var changes []directory.Change
	for _, group := range []struct {
		op   directory.ChangeOp
		args []string
	}{
		{directory.ChangeAdd, *adds},
		{directory.ChangeReplace, *replaces},
	} {
		attrs, err := directory.ParseAssignments(group.args)
		if err != nil {
			return fmt.Errorf("modify: %w", err)
		}
		for _, a := range attrs {
			changes = append(changes, directory.Change{Op: group.op, Name: a.Name, Values: a.Values})
		}
	}
	for _, d := range *deletes {
		name, value, ok := strings.Cut(d, "=")
		c := directory.Change{Op: directory.ChangeDelete, Name: name}
		if ok {
			c.Values = []string{value}
		}
		changes = append(changes, c)
	}
	if len(changes) == 0 {
		return fmt.Errorf("modify: no modifications given (use --add, --replace or --delete)")
	}

	if err := s.ensureConnected(ctx, pos[0], ""); err != nil {
		return err
	}
	cctx, cancel := s.timeout(ctx)
	defer cancel()
	if err := s.client.Modify(cctx, pos[1], changes); err != nil {
		return fmt.Errorf("modify: %w", err)
	}
	s.ctx.UpdateOperationResult(OperationResult{Command: "modify", DN: pos[1], Entries: 1})
	fmt.Fprintf(s.out, "Modified %s (%d changes)\n", pos[1], len(changes))
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	recursive := fs.BoolP("recursive", "r", false, "delete children too")
	pos, err := parse("delete", fs, args, 2)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(ctx, pos[0], ""); err != nil {
		return err
	}
	cctx, cancel := s.timeout(ctx)
	defer cancel()
	n, err := s.client.Delete(cctx, pos[1], *recursive)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.ctx.UpdateOperationResult(OperationResult{Command: "delete", DN: pos[1], Entries: n})
	if n == 1 {
		fmt.Fprintf(s.out, "Deleted %s\n", pos[1])
	} else {
		fmt.Fprintf(s.out, "Deleted %s and %d children\n", pos[1], n-1)
	}
	return nil
}

func (s *Shell) rename(ctx context.Context, args []string) error {
	fs := newFlagSet("rename")
	parent := fs.String("parent", "", "new parent DN")
	pos, err := parse("rename", fs, args, 3)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(ctx, pos[0], ""); err != nil {
		return err
	}
	cctx, cancel := s.timeout(ctx)
	defer cancel()
	if err := s.client.Rename(cctx, pos[1], pos[2], *parent); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	s.ctx.UpdateOperationResult(OperationResult{Command: "rename", DN: pos[1], Entries: 1})
	if *parent != "" {
		fmt.Fprintf(s.out, "Moved %s to %s,%s\n", pos[1], pos[2], *parent)
	} else {
		fmt.Fprintf(s.out, "Renamed %s to %s\n", pos[1], pos[2])
	}
	return nil
}
