package txn_test

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"gchl.dev/gchl/internal/txn"
)

type configEntry struct {
	option string
	value  string
}

// fakeConfig is an in-memory ConfigStore that keeps option order per section
type fakeConfig struct {
	sections map[txn.ConfigScope]map[string][]configEntry
	// fail returns an error to inject for an operation such as "set user.name"
	fail func(op, section, option string) error
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{sections: make(map[txn.ConfigScope]map[string][]configEntry)}
}

func (c *fakeConfig) check(op, section, option string) error {
	if c.fail == nil {
		return nil
	}
	return c.fail(op, section, option)
}

func (c *fakeConfig) scope(scope txn.ConfigScope) map[string][]configEntry {
	s, ok := c.sections[scope]
	if !ok {
		s = make(map[string][]configEntry)
		c.sections[scope] = s
	}
	return s
}

func (c *fakeConfig) HasSection(scope txn.ConfigScope, section string) (bool, error) {
	if err := c.check("has", section, ""); err != nil {
		return false, err
	}
	_, ok := c.sections[scope][section]
	return ok, nil
}

func (c *fakeConfig) GetAll(scope txn.ConfigScope, section, option string) ([]string, bool, error) {
	if err := c.check("get", section, option); err != nil {
		return nil, false, err
	}
	var values []string
	found := false
	for _, e := range c.sections[scope][section] {
		if e.option == option {
			values = append(values, e.value)
			found = true
		}
	}
	return values, found, nil
}

func (c *fakeConfig) Set(scope txn.ConfigScope, section, option string, values ...string) error {
	if err := c.check("set", section, option); err != nil {
		return err
	}
	s := c.scope(scope)
	entries := slices.DeleteFunc(slices.Clone(s[section]), func(e configEntry) bool { return e.option == option })
	for _, v := range values {
		entries = append(entries, configEntry{option: option, value: v})
	}
	if entries == nil {
		entries = []configEntry{}
	}
	s[section] = entries
	return nil
}

func (c *fakeConfig) Add(scope txn.ConfigScope, section, option, value string) error {
	if err := c.check("add", section, option); err != nil {
		return err
	}
	s := c.scope(scope)
	s[section] = append(s[section], configEntry{option: option, value: value})
	return nil
}

func (c *fakeConfig) Unset(scope txn.ConfigScope, section, option string) error {
	if err := c.check("unset", section, option); err != nil {
		return err
	}
	s, ok := c.sections[scope]
	if !ok {
		return nil
	}
	if entries, ok := s[section]; ok {
		s[section] = slices.DeleteFunc(slices.Clone(entries), func(e configEntry) bool { return e.option == option })
	}
	return nil
}

func (c *fakeConfig) RemoveSection(scope txn.ConfigScope, section string) error {
	if err := c.check("remove", section, ""); err != nil {
		return err
	}
	delete(c.sections[scope], section)
	return nil
}

// dump renders a scope for whole-state comparisons
func (c *fakeConfig) dump(scope txn.ConfigScope) map[string][]configEntry {
	out := make(map[string][]configEntry)
	for name, entries := range c.sections[scope] {
		out[name] = slices.Clone(entries)
	}
	return out
}

// fakeRefs is an in-memory RefStore
type fakeRefs struct {
	branches map[string]plumbing.Hash
	tags     map[string]plumbing.Hash
	head     txn.HeadState
	created  []string
	deleted  []string
	// fail returns an error to inject for an operation such as "create tag v1"
	fail func(op string, refType txn.RefType, name string) error
}

func newFakeRefs() *fakeRefs {
	return &fakeRefs{
		branches: make(map[string]plumbing.Hash),
		tags:     make(map[string]plumbing.Hash),
		head:     txn.HeadState{Branch: "main"},
	}
}

func (r *fakeRefs) ns(refType txn.RefType) map[string]plumbing.Hash {
	if refType == txn.RefBranch {
		return r.branches
	}
	return r.tags
}

func (r *fakeRefs) check(op string, refType txn.RefType, name string) error {
	if r.fail == nil {
		return nil
	}
	return r.fail(op, refType, name)
}

func (r *fakeRefs) ListRefs(_ context.Context, refType txn.RefType) ([]txn.Ref, error) {
	if err := r.check("list", refType, ""); err != nil {
		return nil, err
	}
	var refs []txn.Ref
	for name, target := range r.ns(refType) {
		refs = append(refs, txn.Ref{Type: refType, Name: name, Target: target})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (r *fakeRefs) CreateRef(_ context.Context, refType txn.RefType, name string, target plumbing.Hash, opts txn.CreateRefOptions) error {
	if err := r.check("create", refType, name); err != nil {
		return err
	}
	ns := r.ns(refType)
	if _, ok := ns[name]; ok && !opts.Force {
		return fmt.Errorf("%s %s already exists", refType, name)
	}
	ns[name] = target
	r.created = append(r.created, string(refType)+" "+name)
	return nil
}

func (r *fakeRefs) DeleteRef(_ context.Context, refType txn.RefType, name string) error {
	if err := r.check("delete", refType, name); err != nil {
		return err
	}
	ns := r.ns(refType)
	if _, ok := ns[name]; !ok {
		return fmt.Errorf("%s %s not found", refType, name)
	}
	if refType == txn.RefBranch && r.head.Branch == name {
		return fmt.Errorf("cannot delete branch %s checked out", name)
	}
	delete(ns, name)
	r.deleted = append(r.deleted, string(refType)+" "+name)
	return nil
}

func (r *fakeRefs) Head(_ context.Context) (txn.HeadState, error) {
	if err := r.check("head", "", ""); err != nil {
		return txn.HeadState{}, err
	}
	if r.head.Detached() {
		return r.head, nil
	}
	return txn.HeadState{Branch: r.head.Branch, Commit: r.branches[r.head.Branch]}, nil
}

func (r *fakeRefs) SetHead(_ context.Context, head txn.HeadState) error {
	if err := r.check("sethead", "", head.Branch); err != nil {
		return err
	}
	if head.Detached() {
		r.head = txn.HeadState{Commit: head.Commit}
		return nil
	}
	r.head = txn.HeadState{Branch: head.Branch}
	return nil
}

// fakeRemotes is an in-memory RemoteStore
type fakeRemotes struct {
	remotes map[string]string
	pushes  [][]string
	results []txn.PushResult
	pushErr error
	fail    func(op, name string) error
}

func newFakeRemotes() *fakeRemotes {
	return &fakeRemotes{remotes: make(map[string]string)}
}

func (r *fakeRemotes) check(op, name string) error {
	if r.fail == nil {
		return nil
	}
	return r.fail(op, name)
}

func (r *fakeRemotes) CreateRemote(_ context.Context, name, url string) error {
	if err := r.check("create", name); err != nil {
		return err
	}
	if _, ok := r.remotes[name]; ok {
		return fmt.Errorf("remote %s already exists", name)
	}
	r.remotes[name] = url
	return nil
}

func (r *fakeRemotes) DeleteRemote(_ context.Context, name string) error {
	if err := r.check("delete", name); err != nil {
		return err
	}
	if _, ok := r.remotes[name]; !ok {
		return fmt.Errorf("remote %s not found", name)
	}
	delete(r.remotes, name)
	return nil
}

func (r *fakeRemotes) HasRemote(_ context.Context, name string) (bool, error) {
	if err := r.check("has", name); err != nil {
		return false, err
	}
	_, ok := r.remotes[name]
	return ok, nil
}

func (r *fakeRemotes) Push(_ context.Context, remote string, _ bool, refspecs ...string) ([]txn.PushResult, error) {
	if _, ok := r.remotes[remote]; !ok {
		return nil, fmt.Errorf("remote %s not found", remote)
	}
	r.pushes = append(r.pushes, append([]string{remote}, refspecs...))
	return r.results, r.pushErr
}

// fakeEnv is an in-memory Environ
type fakeEnv map[string]string

func (e fakeEnv) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

func (e fakeEnv) Set(key, value string) error {
	e[key] = value
	return nil
}

func (e fakeEnv) Unset(key string) error {
	delete(e, key)
	return nil
}

// fakeWorktree records worktree operations
type fakeWorktree struct {
	refs    *fakeRefs
	dirty   bool
	stashes int
	ops     []string
	fail    func(op string) error
}

func (w *fakeWorktree) check(op string) error {
	w.ops = append(w.ops, op)
	if w.fail == nil {
		return nil
	}
	return w.fail(op)
}

func (w *fakeWorktree) IsDirty(_ context.Context) (bool, error) {
	return w.dirty, nil
}

func (w *fakeWorktree) StashPush(_ context.Context) error {
	if err := w.check("stash push"); err != nil {
		return err
	}
	w.stashes++
	w.dirty = false
	return nil
}

func (w *fakeWorktree) StashPop(_ context.Context) error {
	if err := w.check("stash pop"); err != nil {
		return err
	}
	w.stashes--
	w.dirty = true
	return nil
}

func (w *fakeWorktree) Checkout(ctx context.Context, head txn.HeadState) error {
	if err := w.check("checkout " + head.String()); err != nil {
		return err
	}
	return w.refs.SetHead(ctx, head)
}

func hash(s string) plumbing.Hash {
	return plumbing.NewHash(strings.Repeat("0", 40-len(s)) + s)
}
