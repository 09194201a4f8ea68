package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveConfig writes settings back to the global or repository file.
// Edits go through the YAML node tree, so comments and key order that a
// user wrote by hand survive.
type SaveConfig struct {
	// HomeDir overrides the user's home directory.
	HomeDir string

	GlobalConfigDir  string
	GlobalConfigFile string
	LocalConfigName  string

	ValidGlobalKeys []string
	ValidLocalKeys  []string
}

func (c SaveConfig) globalConfigFile() string {
	if c.GlobalConfigFile != "" {
		return c.GlobalConfigFile
	}
	return "config.yaml"
}

// GlobalPath returns the global config file path.
func (c SaveConfig) GlobalPath() (string, error) {
	if c.GlobalConfigDir == "" {
		return "", fmt.Errorf("global config directory not configured")
	}
	home := c.HomeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
	}
	return filepath.Join(home, ".config", c.GlobalConfigDir, c.globalConfigFile()), nil
}

// LocalPath returns the repository config file under gitRoot.
func (c SaveConfig) LocalPath(gitRoot string) (string, error) {
	if gitRoot == "" {
		return "", fmt.Errorf("git root not found")
	}
	if c.LocalConfigName == "" {
		return "", fmt.Errorf("local config name not configured")
	}
	return filepath.Join(gitRoot, c.LocalConfigName), nil
}

// SaveGlobal sets key in the global file, creating it if needed.
func (c SaveConfig) SaveGlobal(key, value string) error {
	if err := checkKey("global", key, c.ValidGlobalKeys); err != nil {
		return err
	}
	path, err := c.GlobalPath()
	if err != nil {
		return err
	}
	return edit(path, 0o600, func(d *document) bool { d.set(key, value); return true })
}

// SaveLocal sets key in the repository file. That file is meant to be
// committed, so it is written world-readable.
func (c SaveConfig) SaveLocal(gitRoot, key, value string) error {
	path, err := c.LocalPath(gitRoot)
	if err != nil {
		return err
	}
	if err := checkKey("local", key, c.ValidLocalKeys); err != nil {
		return err
	}
	return edit(path, 0o644, func(d *document) bool { d.set(key, value); return true })
}

// DeleteGlobalKey removes key from the global file. A missing file or
// key is not an error.
func (c SaveConfig) DeleteGlobalKey(key string) error {
	path, err := c.GlobalPath()
	if err != nil {
		return err
	}
	return edit(path, 0o600, func(d *document) bool { return d.unset(key) })
}

// DeleteLocalKey removes key from the repository file.
func (c SaveConfig) DeleteLocalKey(gitRoot, key string) error {
	path, err := c.LocalPath(gitRoot)
	if err != nil {
		return err
	}
	return edit(path, 0o644, func(d *document) bool { return d.unset(key) })
}

func checkKey(scope, key string, valid []string) error {
	if len(valid) > 0 && !slices.Contains(valid, key) {
		return fmt.Errorf("unknown %s config key: %s\n\nValid keys: %s",
			scope, key, strings.Join(valid, ", "))
	}
	return nil
}

// edit loads path, applies fn and writes the file back when fn reports a
// change. A file that does not hold a YAML mapping is left untouched.
func edit(path string, perm os.FileMode, fn func(*document) bool) error {
	d, err := loadDocument(path)
	if err != nil {
		return err
	}
	if !fn(d) {
		return nil
	}
	return d.save(perm)
}

// document is a settings file held as its YAML node tree.
type document struct {
	path string
	root yaml.Node
}

func loadDocument(path string) (*document, error) {
	d := &document{path: path}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &d.root); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if d.root.Kind == 0 {
		d.root = yaml.Node{Kind: yaml.DocumentNode}
	}
	if d.root.Kind == yaml.DocumentNode && len(d.root.Content) == 0 {
		d.root.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}
	if len(d.root.Content) != 1 || d.root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: top level is not a mapping of settings", path)
	}
	return d, nil
}

func (d *document) mapping() *yaml.Node {
	return d.root.Content[0]
}

func (d *document) index(key string) int {
	m := d.mapping()
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func (d *document) set(key, value string) {
	m := d.mapping()
	node := scalar(value)
	if i := d.index(key); i >= 0 {
		old := m.Content[i+1]
		node.HeadComment, node.LineComment, node.FootComment = old.HeadComment, old.LineComment, old.FootComment
		m.Content[i+1] = node
		return
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, node)
}

func (d *document) unset(key string) bool {
	i := d.index(key)
	if i < 0 {
		return false
	}
	m := d.mapping()
	m.Content = slices.Delete(m.Content, i, i+2)
	return true
}

func (d *document) save(perm os.FileMode) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d.root); err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(d.path, buf.Bytes(), perm)
}

// scalar types a command-line value the way YAML would read it back:
// booleans and integers unquoted, everything else a string.
func scalar(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	if lower := strings.ToLower(value); lower == "true" || lower == "false" {
		n.Tag, n.Value = "!!bool", lower
	} else if _, err := strconv.Atoi(value); err == nil {
		n.Tag = "!!int"
	}
	return n
}
