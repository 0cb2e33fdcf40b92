package git

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	format "github.com/go-git/go-git/v5/plumbing/format/config"

	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/txn"
)

// sectionName is a parsed section header: `name` or `name "subsection"`
type sectionName struct {
	name string
	sub  string
}

func parseSectionName(section string) (sectionName, error) {
	section = strings.TrimSpace(section)
	name, rest, found := strings.Cut(section, " ")
	if name == "" {
		return sectionName{}, fmt.Errorf("empty section name")
	}
	if !found {
		return sectionName{name: name}, nil
	}
	sub, err := strconv.Unquote(strings.TrimSpace(rest))
	if err != nil {
		return sectionName{}, fmt.Errorf("malformed subsection in %q: %w", section, err)
	}
	return sectionName{name: name, sub: sub}, nil
}

func (s sectionName) exists(cfg *format.Config) bool {
	if !cfg.HasSection(s.name) {
		return false
	}
	if s.sub == "" {
		return true
	}
	return cfg.Section(s.name).HasSubsection(s.sub)
}

func (s sectionName) getAll(cfg *format.Config, option string) ([]string, bool) {
	if !s.exists(cfg) {
		return nil, false
	}
	sec := cfg.Section(s.name)
	if s.sub == "" {
		return sec.OptionAll(option), sec.HasOption(option)
	}
	sub := sec.Subsection(s.sub)
	return sub.OptionAll(option), sub.HasOption(option)
}

func (s sectionName) add(cfg *format.Config, option string, values ...string) {
	sec := cfg.Section(s.name)
	if s.sub == "" {
		for _, v := range values {
			sec.AddOption(option, v)
		}
		return
	}
	sub := sec.Subsection(s.sub)
	for _, v := range values {
		sub.AddOption(option, v)
	}
}

func (s sectionName) unset(cfg *format.Config, option string) {
	if !s.exists(cfg) {
		return
	}
	sec := cfg.Section(s.name)
	if s.sub == "" {
		sec.RemoveOption(option)
		return
	}
	sec.Subsection(s.sub).RemoveOption(option)
}

func (s sectionName) remove(cfg *format.Config) {
	if !s.exists(cfg) {
		return
	}
	sec := cfg.Section(s.name)
	if s.sub == "" {
		// Subsections share the section name and are kept
		if len(sec.Subsections) > 0 {
			sec.Options = format.Options{}
			return
		}
		cfg.RemoveSection(s.name)
		return
	}
	sec.RemoveSubsection(s.sub)
	if len(sec.Options) == 0 && len(sec.Subsections) == 0 {
		cfg.RemoveSection(s.name)
	}
}

// ConfigPath returns the file backing a configuration scope
func (r *Repository) ConfigPath(scope txn.ConfigScope) (string, error) {
	switch scope {
	case txn.ScopeRepository:
		return filepath.Join(r.gitDir, "config"), nil
	case txn.ScopeGlobal:
		return globalConfigPath()
	}
	return "", gchlerrors.NewInvariantError("configuration scope", string(scope))
}

// globalConfigPath follows git: $GIT_CONFIG_GLOBAL, else ~/.gitconfig unless
// only the XDG file exists
func globalConfigPath() (string, error) {
	if path, ok := os.LookupEnv("GIT_CONFIG_GLOBAL"); ok && path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate global configuration: %w", err)
	}
	dotfile := filepath.Join(home, ".gitconfig")
	if _, err := os.Stat(dotfile); err == nil {
		return dotfile, nil
	}

	xdgHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgHome == "" {
		xdgHome = filepath.Join(home, ".config")
	}
	xdg := filepath.Join(xdgHome, "git", "config")
	if _, err := os.Stat(xdg); err == nil {
		return xdg, nil
	}
	return dotfile, nil
}

func readConfigFile(path string) (*format.Config, error) {
	cfg := format.New()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if err := format.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func (r *Repository) readConfig(scope txn.ConfigScope) (*format.Config, error) {
	path, err := r.ConfigPath(scope)
	if err != nil {
		return nil, err
	}
	return readConfigFile(path)
}

// updateConfig rewrites a scope's file under git's <file>.lock protocol
func (r *Repository) updateConfig(scope txn.ConfigScope, update func(cfg *format.Config)) (err error) {
	path, err := r.ConfigPath(scope)
	if err != nil {
		return err
	}
	if path == os.DevNull {
		return fmt.Errorf("%s configuration is disabled (%s)", scope, path)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	lockPath := path + ".lock"
	lock, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", gchlerrors.ErrConfigLocked, lockPath)
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = lock.Close()
			_ = os.Remove(lockPath)
		}
	}()

	cfg, err := readConfigFile(path)
	if err != nil {
		return err
	}
	update(cfg)

	if err := format.NewEncoder(lock).Encode(cfg); err != nil {
		return fmt.Errorf("failed to write %s: %w", lockPath, err)
	}
	if err := lock.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", lockPath, err)
	}
	if err := os.Rename(lockPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	committed = true
	return nil
}

// HasSection reports whether a section exists in the scope
func (r *Repository) HasSection(scope txn.ConfigScope, section string) (bool, error) {
	name, err := parseSectionName(section)
	if err != nil {
		return false, err
	}
	cfg, err := r.readConfig(scope)
	if err != nil {
		return false, err
	}
	return name.exists(cfg), nil
}

// GetAll returns every value of an option in file order
func (r *Repository) GetAll(scope txn.ConfigScope, section, option string) ([]string, bool, error) {
	name, err := parseSectionName(section)
	if err != nil {
		return nil, false, err
	}
	cfg, err := r.readConfig(scope)
	if err != nil {
		return nil, false, err
	}
	values, ok := name.getAll(cfg, option)
	return values, ok, nil
}

// Set replaces every value of an option
func (r *Repository) Set(scope txn.ConfigScope, section, option string, values ...string) error {
	name, err := parseSectionName(section)
	if err != nil {
		return err
	}
	return r.updateConfig(scope, func(cfg *format.Config) {
		name.unset(cfg, option)
		if len(values) == 0 {
			// An empty option list still creates the section
			cfg.Section(name.name)
			if name.sub != "" {
				cfg.Section(name.name).Subsection(name.sub)
			}
			return
		}
		name.add(cfg, option, values...)
	})
}

// Add appends a value to an option
func (r *Repository) Add(scope txn.ConfigScope, section, option, value string) error {
	name, err := parseSectionName(section)
	if err != nil {
		return err
	}
	return r.updateConfig(scope, func(cfg *format.Config) {
		name.add(cfg, option, value)
	})
}

// Unset removes every value of an option; a missing option is not an error
func (r *Repository) Unset(scope txn.ConfigScope, section, option string) error {
	name, err := parseSectionName(section)
	if err != nil {
		return err
	}
	return r.updateConfig(scope, func(cfg *format.Config) {
		name.unset(cfg, option)
	})
}

// RemoveSection removes a section; a missing section is not an error
func (r *Repository) RemoveSection(scope txn.ConfigScope, section string) error {
	name, err := parseSectionName(section)
	if err != nil {
		return err
	}
	return r.updateConfig(scope, func(cfg *format.Config) {
		name.remove(cfg)
	})
}
