package config

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolverConfig describes where settings live and which keys exist.
type ResolverConfig struct {
	// EnvPrefix turns a key into its variable name: with "BUILD_TOOLS_",
	// gitlab_url is read from BUILD_TOOLS_GITLAB_URL.
	EnvPrefix string

	// LookupEnv resolves environment variables. Nil disables the
	// environment layer.
	LookupEnv func(key string) (string, bool)

	// GlobalConfigDir is the directory under ~/.config holding the global
	// file, named GlobalConfigFile or config.yaml.
	GlobalConfigDir  string
	GlobalConfigFile string

	// LocalConfigName is the per-repository file in the git root.
	LocalConfigName string

	Defaults map[string]string

	// ValidGlobalKeys and ValidLocalKeys restrict what each file may set.
	// Nil accepts anything.
	ValidGlobalKeys []string
	ValidLocalKeys  []string

	// GitRootFinder locates the repository root. Nil walks up from the
	// working directory looking for .git.
	GitRootFinder func(startDir string) (string, error)

	Logger *slog.Logger
}

func (c ResolverConfig) globalConfigFile() string {
	if c.GlobalConfigFile != "" {
		return c.GlobalConfigFile
	}
	return "config.yaml"
}

// layer is one settings file and the source its values are tagged with.
type layer struct {
	path  string
	src   Source
	valid []string
}

// Resolver merges defaults, files, environment and flags.
type Resolver struct {
	config     ResolverConfig
	logger     *slog.Logger
	globalPath string
	localPath  string
	gitRoot    string

	// Warnings collects unreadable files and unknown keys seen by the
	// last Resolve.
	Warnings []string
}

// NewResolver places the global file under the user's home and the local
// file in the enclosing git root, when there is one.
func NewResolver(cfg ResolverConfig) *Resolver {
	var globalPath, localPath string
	if cfg.GlobalConfigDir != "" {
		if home, err := os.UserHomeDir(); err == nil {
			globalPath = filepath.Join(home, ".config", cfg.GlobalConfigDir, cfg.globalConfigFile())
		}
	}

	findRoot := cfg.GitRootFinder
	if findRoot == nil {
		findRoot = func(dir string) (string, error) { return findGitRoot(dir), nil }
	}
	root, err := findRoot(".")
	if err != nil {
		root = ""
	}
	if root != "" && cfg.LocalConfigName != "" {
		localPath = filepath.Join(root, cfg.LocalConfigName)
	}

	r := NewResolverWithPaths(cfg, globalPath, localPath)
	r.gitRoot = root
	return r
}

// NewResolverWithPaths uses the given files as is. Either may be empty.
func NewResolverWithPaths(cfg ResolverConfig, globalPath, localPath string) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		config:     cfg,
		logger:     logger,
		globalPath: globalPath,
		localPath:  localPath,
	}
	if localPath != "" {
		r.gitRoot = filepath.Dir(localPath)
	}
	return r
}

func (r *Resolver) layers() []layer {
	return []layer{
		{path: r.globalPath, src: SourceGlobal, valid: r.config.ValidGlobalKeys},
		{path: r.localPath, src: SourceLocal, valid: r.config.ValidLocalKeys},
	}
}

func (r *Resolver) warn(path, msg string, args ...any) {
	text := fmt.Sprintf(msg, args...)
	r.Warnings = append(r.Warnings, text)
	r.logger.Warn("config ignored", "file", path, "reason", text)
}

type entry struct {
	value string
	src   Source
}

// Resolved is the merged view of every layer.
type Resolved struct {
	entries map[string]entry
}

// Get returns key's value, or "" when nothing sets it.
func (c *Resolved) Get(key string) string {
	return c.entries[key].value
}

// Source returns the layer key's value came from.
func (c *Resolved) Source(key string) Source {
	return c.entries[key].src
}

// GetWithSource returns Get and Source together.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	e := c.entries[key]
	return e.value, e.src
}

// All returns a copy of every value.
func (c *Resolved) All() map[string]string {
	out := make(map[string]string, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.value
	}
	return out
}

// Keys returns every set key, sorted.
func (c *Resolved) Keys() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

func (c *Resolved) set(key, value string, src Source) {
	c.entries[key] = entry{value: value, src: src}
}

// Resolve merges defaults, then the global file, the local file and the
// environment, each overriding the one before.
func (r *Resolver) Resolve() *Resolved {
	r.Warnings = nil
	cfg := &Resolved{entries: make(map[string]entry)}
	for key, value := range r.config.Defaults {
		cfg.set(key, value, SourceDefault)
	}
	for _, l := range r.layers() {
		r.applyFile(cfg, l)
	}
	r.applyEnv(cfg)
	return cfg
}

// ResolveWithFlags is Resolve with non-empty flag values on top.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()
	for key, value := range flags {
		if value != "" {
			cfg.set(key, value, SourceFlag)
		}
	}
	return cfg
}

func (r *Resolver) applyFile(cfg *Resolved, l layer) {
	if l.path == "" {
		return
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.warn(l.path, "unreadable: %v", err)
		}
		return
	}

	var nodes map[string]yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		r.warn(l.path, "could not parse: %v", err)
		return
	}

	for _, key := range slices.Sorted(maps.Keys(nodes)) {
		if l.valid != nil && !slices.Contains(l.valid, key) {
			r.warn(l.path, "unknown key %q", key)
			continue
		}
		node := nodes[key]
		if node.Kind != yaml.ScalarNode {
			r.warn(l.path, "%s is not a plain value", key)
			continue
		}
		if node.Tag == "!!null" || node.Value == "" {
			continue
		}
		cfg.set(key, node.Value, l.src)
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	if r.config.EnvPrefix == "" || r.config.LookupEnv == nil {
		return
	}
	known := slices.Collect(maps.Keys(r.config.Defaults))
	for key := range cfg.entries {
		if !slices.Contains(known, key) {
			known = append(known, key)
		}
	}
	for _, key := range known {
		if value, ok := r.config.LookupEnv(EnvName(r.config.EnvPrefix, key)); ok && value != "" {
			cfg.set(key, value, SourceEnv)
		}
	}
}

// EnvName returns the environment variable for key under prefix.
func EnvName(prefix, key string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// GitRoot returns the repository root, or "" outside a repository.
func (r *Resolver) GitRoot() string { return r.gitRoot }

// GlobalPath returns the global settings file.
func (r *Resolver) GlobalPath() string { return r.globalPath }

// LocalPath returns the repository settings file.
func (r *Resolver) LocalPath() string { return r.localPath }

// findGitRoot walks up from startDir to the first directory holding .git,
// which is a file in linked worktrees.
func findGitRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
