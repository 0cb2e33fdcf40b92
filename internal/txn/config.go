package txn

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/chainguard-dev/clog"
)

// ConfigOverride maps scope -> section -> option -> values.
// Options are multi-valued; applying an override replaces all existing values.
type ConfigOverride map[ConfigScope]map[string]map[string][]string

// Set records values for an option and returns the override for chaining
func (o ConfigOverride) Set(scope ConfigScope, section, option string, values ...string) ConfigOverride {
	sections, ok := o[scope]
	if !ok {
		sections = make(map[string]map[string][]string)
		o[scope] = sections
	}
	options, ok := sections[section]
	if !ok {
		options = make(map[string][]string)
		sections[section] = options
	}
	options[option] = slices.Clone(values)
	return o
}

// Merge copies every option of other into o, other winning on conflicts
func (o ConfigOverride) Merge(other ConfigOverride) ConfigOverride {
	for _, key := range other.sections() {
		for _, option := range other.options(key) {
			o.Set(key.scope, key.section, option, other[key.scope][key.section][option]...)
		}
	}
	return o
}

// Get returns the overriding values of an option
func (o ConfigOverride) Get(scope ConfigScope, section, option string) ([]string, bool) {
	values, ok := o[scope][section][option]
	return values, ok
}

// sectionKey identifies a section within a scope
type sectionKey struct {
	scope   ConfigScope
	section string
}

func (k sectionKey) String() string {
	return fmt.Sprintf("%s [%s]", k.scope, k.section)
}

// sections returns every (scope, section) in a stable order
func (o ConfigOverride) sections() []sectionKey {
	var keys []sectionKey
	for scope, sections := range o {
		for section := range sections {
			keys = append(keys, sectionKey{scope: scope, section: section})
		}
	}
	slices.SortFunc(keys, func(a, b sectionKey) int {
		if a.scope != b.scope {
			if a.scope < b.scope {
				return -1
			}
			return 1
		}
		switch {
		case a.section < b.section:
			return -1
		case a.section > b.section:
			return 1
		}
		return 0
	})
	return keys
}

// options returns the option names of a section in sorted order
func (o ConfigOverride) options(key sectionKey) []string {
	var names []string
	for name := range o[key.scope][key.section] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ConfigTransaction applies a ConfigOverride and reverts it from a snapshot
type ConfigTransaction struct {
	store     ConfigStore
	override  ConfigOverride
	snapshot  *ConfigSnapshot
	attempted []sectionKey
	reverted  bool
}

// NewConfigTransaction creates a transaction; nothing is touched until Apply
func NewConfigTransaction(store ConfigStore, override ConfigOverride) *ConfigTransaction {
	return &ConfigTransaction{store: store, override: override}
}

// Snapshot returns the captured prior state, nil before Apply
func (t *ConfigTransaction) Snapshot() *ConfigSnapshot {
	return t.snapshot
}

// Apply captures the prior state of every touched option and then writes the
// override. If capturing fails nothing is written.
func (t *ConfigTransaction) Apply(ctx context.Context) error {
	if t.snapshot != nil {
		return errors.New("configuration override already applied")
	}

	snapshot, err := CaptureConfig(t.store, t.override)
	if err != nil {
		return fmt.Errorf("failed to back up configuration: %w", err)
	}
	t.snapshot = snapshot

	log := clog.FromContext(ctx)
	for _, key := range t.override.sections() {
		// Recorded before writing: a failed write may still have modified the section
		t.attempted = append(t.attempted, key)
		for _, option := range t.override.options(key) {
			values := t.override[key.scope][key.section][option]
			log.Debugf("Setting %s %s.%s", key.scope, key.section, option)
			if err := t.store.Set(key.scope, key.section, option, values...); err != nil {
				return fmt.Errorf("failed to set %s option %q in [%s]: %w", key.scope, option, key.section, err)
			}
		}
	}
	return nil
}

// Revert restores every section the override touched. It keeps going after a
// section fails and returns all failures joined.
func (t *ConfigTransaction) Revert(ctx context.Context) error {
	if t.reverted || t.snapshot == nil {
		return nil
	}
	t.reverted = true

	var errs []error
	for i := len(t.attempted) - 1; i >= 0; i-- {
		key := t.attempted[i]
		if err := t.snapshot.restoreSection(t.store, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", key, err))
		}
	}
	if len(errs) == 0 {
		clog.FromContext(ctx).Debugf("Restored %d configuration sections", len(t.attempted))
	}
	return errors.Join(errs...)
}

// Acquire implements Scope
func (t *ConfigTransaction) Acquire(ctx context.Context) error {
	return t.Apply(ctx)
}

// Release implements Scope
func (t *ConfigTransaction) Release(ctx context.Context) error {
	return t.Revert(ctx)
}
