package txn

import (
	"errors"
	"fmt"
	"slices"
)

// sectionSnapshot is the prior state of one section: whether it existed and
// the values of every touched option that was present.
type sectionSnapshot struct {
	existed bool
	touched []string
	values  map[string][]string
}

// ConfigSnapshot is the state of every (scope, section, option) named by a
// ConfigOverride before it was applied
type ConfigSnapshot struct {
	sections map[sectionKey]*sectionSnapshot
}

// CaptureConfig records the current state of everything override touches
func CaptureConfig(r ConfigReader, override ConfigOverride) (*ConfigSnapshot, error) {
	snapshot := &ConfigSnapshot{sections: make(map[sectionKey]*sectionSnapshot)}

	for _, key := range override.sections() {
		exists, err := r.HasSection(key.scope, key.section)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		section := &sectionSnapshot{
			existed: exists,
			touched: override.options(key),
			values:  make(map[string][]string),
		}
		if exists {
			for _, option := range section.touched {
				values, ok, err := r.GetAll(key.scope, key.section, option)
				if err != nil {
					return nil, fmt.Errorf("failed to read %s option %q: %w", key, option, err)
				}
				if ok {
					section.values[option] = slices.Clone(values)
				}
			}
		}
		snapshot.sections[key] = section
	}
	return snapshot, nil
}

// Existed reports whether a section existed before the override
func (s *ConfigSnapshot) Existed(scope ConfigScope, section string) bool {
	st, ok := s.sections[sectionKey{scope: scope, section: section}]
	return ok && st.existed
}

// Values returns the prior values of an option and whether it was present
func (s *ConfigSnapshot) Values(scope ConfigScope, section, option string) ([]string, bool) {
	st, ok := s.sections[sectionKey{scope: scope, section: section}]
	if !ok {
		return nil, false
	}
	values, ok := st.values[option]
	return slices.Clone(values), ok
}

// restoreSection puts one section back. A section that existed gets its
// touched options removed and the saved values re-added in their original
// order; a section that did not exist is removed entirely.
func (s *ConfigSnapshot) restoreSection(w ConfigStore, key sectionKey) error {
	st, ok := s.sections[key]
	if !ok {
		return nil
	}

	if !st.existed {
		return w.RemoveSection(key.scope, key.section)
	}

	var errs []error
	for _, option := range st.touched {
		if err := w.Unset(key.scope, key.section, option); err != nil {
			errs = append(errs, fmt.Errorf("option %q: %w", option, err))
			continue
		}
		for _, value := range st.values[option] {
			if err := w.Add(key.scope, key.section, option, value); err != nil {
				errs = append(errs, fmt.Errorf("option %q: %w", option, err))
				break
			}
		}
	}
	return errors.Join(errs...)
}
