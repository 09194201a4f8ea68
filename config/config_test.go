package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolver_Defaults(t *testing.T) {
	resolver := NewResolverWithPaths(ResolverConfig{
		Defaults: map[string]string{
			"gitlab_url": "https://gitlab.com",
			"format":     "table",
		},
	}, "", "")

	cfg := resolver.Resolve()

	if got := cfg.Get("gitlab_url"); got != "https://gitlab.com" {
		t.Errorf("gitlab_url = %q", got)
	}
	if got := cfg.Source("gitlab_url"); got != SourceDefault {
		t.Errorf("source = %q, want %q", got, SourceDefault)
	}
}

func TestResolver_Layers(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "global", "config.yaml")
	local := filepath.Join(dir, "repo", ".build-tools.yaml")
	writeFile(t, global, "gitlab_url: https://global\nworkflow_max_wait: 5m\nmultidev_keep: 3\n")
	writeFile(t, local, "gitlab_url: https://local\nworkflow_max_wait: 7m\n")

	tests := []struct {
		name       string
		env        map[string]string
		flags      map[string]string
		key        string
		wantValue  string
		wantSource Source
	}{
		{name: "global over default", key: "multidev_keep", wantValue: "3", wantSource: SourceGlobal},
		{name: "local over global", key: "workflow_max_wait", wantValue: "7m", wantSource: SourceLocal},
		{
			name:       "env over local",
			env:        map[string]string{"BUILD_TOOLS_GITLAB_URL": "https://env"},
			key:        "gitlab_url",
			wantValue:  "https://env",
			wantSource: SourceEnv,
		},
		{
			name:       "empty env ignored",
			env:        map[string]string{"BUILD_TOOLS_GITLAB_URL": ""},
			key:        "gitlab_url",
			wantValue:  "https://local",
			wantSource: SourceLocal,
		},
		{
			name:       "flag over env",
			env:        map[string]string{"BUILD_TOOLS_GITLAB_URL": "https://env"},
			flags:      map[string]string{"gitlab_url": "https://flag"},
			key:        "gitlab_url",
			wantValue:  "https://flag",
			wantSource: SourceFlag,
		},
		{
			name:       "empty flag ignored",
			flags:      map[string]string{"gitlab_url": ""},
			key:        "gitlab_url",
			wantValue:  "https://local",
			wantSource: SourceLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolverWithPaths(ResolverConfig{
				EnvPrefix: EnvPrefix,
				LookupEnv: envOf(tt.env),
				Defaults:  Defaults(),
				Logger:    quietLogger(),
			}, global, local)

			cfg := r.ResolveWithFlags(tt.flags)
			value, src := cfg.GetWithSource(tt.key)
			if value != tt.wantValue || src != tt.wantSource {
				t.Errorf("%s = %q (%s), want %q (%s)", tt.key, value, src, tt.wantValue, tt.wantSource)
			}
		})
	}
}

func TestResolver_NilLookupEnvSkipsEnvironment(t *testing.T) {
	r := NewResolverWithPaths(ResolverConfig{
		EnvPrefix: "X_",
		Defaults:  map[string]string{"k": "v"},
	}, "", "")
	if got := r.Resolve().Source("k"); got != SourceDefault {
		t.Errorf("source = %q, want default", got)
	}
}

func TestResolver_ValidKeysWarn(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "config.yaml")
	writeFile(t, global, "gitlab_url: https://test\ninvalid_key: value\n")

	var logs bytes.Buffer
	r := NewResolverWithPaths(ResolverConfig{
		ValidGlobalKeys: ValidKeys(),
		Logger:          slog.New(slog.NewTextHandler(&logs, nil)),
	}, global, "")

	cfg := r.Resolve()

	if got := cfg.Get("gitlab_url"); got != "https://test" {
		t.Errorf("gitlab_url = %q", got)
	}
	if got := cfg.Get("invalid_key"); got != "" {
		t.Errorf("invalid_key = %q, want empty", got)
	}
	if len(r.Warnings) != 1 || !strings.Contains(logs.String(), "invalid_key") {
		t.Errorf("warnings = %v, logs = %q", r.Warnings, logs.String())
	}
}

func TestResolver_MalformedFileWarns(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "config.yaml")
	writeFile(t, global, "not: valid: yaml: [[[")

	r := NewResolverWithPaths(ResolverConfig{
		Defaults:  map[string]string{"k": "v"},
		Logger:    quietLogger(),
	}, global, "")
	cfg := r.Resolve()

	if cfg.Get("k") != "v" {
		t.Error("defaults lost after malformed file")
	}
	if len(r.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", r.Warnings)
	}
}

func TestResolver_ScalarValues(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "config.yaml")
	writeFile(t, global, "credential_cache: false\nprovider_page_size: 2\nnested:\n  a: b\n")

	r := NewResolverWithPaths(ResolverConfig{Logger: quietLogger()}, global, "")
	cfg := r.Resolve()

	want := map[string]string{
		"credential_cache":   "false",
		"provider_page_size": "2",
	}
	if diff := cmp.Diff(want, cfg.All()); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"credential_cache", "provider_page_size"}, cfg.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], "nested") {
		t.Errorf("warnings = %v, want one about nested", r.Warnings)
	}
}

func TestResolver_MissingFilesAreSilent(t *testing.T) {
	dir := t.TempDir()
	r := NewResolverWithPaths(ResolverConfig{Defaults: Defaults(), Logger: quietLogger()},
		filepath.Join(dir, "absent.yaml"), filepath.Join(dir, "repo", LocalConfigName))
	r.Resolve()
	if len(r.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", r.Warnings)
	}
}

func TestNewResolver_GitRootFinder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, LocalConfigName), "multidev_pattern: ci-\n")

	r := NewResolver(ResolverConfig{
		LocalConfigName: LocalConfigName,
		GitRootFinder:   func(string) (string, error) { return dir, nil },
		Defaults:        Defaults(),
	})

	if r.GitRoot() != dir || r.LocalPath() != filepath.Join(dir, LocalConfigName) {
		t.Errorf("GitRoot() = %q, LocalPath() = %q", r.GitRoot(), r.LocalPath())
	}
	if got := r.Resolve().Get(KeyMultidevPattern); got != "ci-" {
		t.Errorf("multidev_pattern = %q, want ci-", got)
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	if root := findGitRoot(nested); root != tmpDir {
		t.Errorf("findGitRoot() = %q, want %q", root, tmpDir)
	}
	worktree := t.TempDir()
	writeFile(t, filepath.Join(worktree, ".git"), "gitdir: /src/site/.git/worktrees/wt\n")
	if root := findGitRoot(worktree); root != worktree {
		t.Errorf("findGitRoot(worktree) = %q, want %q", root, worktree)
	}
	if root := findGitRoot(t.TempDir()); root != "" {
		t.Errorf("findGitRoot() without .git = %q, want empty", root)
	}
}

func TestNewSettings(t *testing.T) {
	r := NewResolverWithPaths(ResolverConfig{
		EnvPrefix: EnvPrefix,
		LookupEnv: envOf(map[string]string{
			"BUILD_TOOLS_PROVIDER_PAGE_SIZE":          "2",
			"BUILD_TOOLS_WORKFLOW_MAX_WAIT":           "90",
			"BUILD_TOOLS_WORKFLOW_NOT_FOUND_ATTEMPTS": "4",
			"BUILD_TOOLS_CREDENTIAL_CACHE":            "false",
		}),
		Defaults: Defaults(),
	}, "", "")

	got, err := NewSettings(r.Resolve())
	if err != nil {
		t.Fatal(err)
	}

	want := Settings{
		PageSize:                 2,
		WorkflowMaxWait:          90 * time.Second,
		WorkflowNotFoundAttempts: 4,
		CredentialCache:          false,
		MultidevPattern:          "pr-",
		GitHubAPIURL:             "https://api.github.com/",
		GitLabURL:                "https://gitlab.com",
		BitbucketAPIURL:          "https://api.bitbucket.org/2.0/",
		CircleAPIURL:             "https://circleci.com/api/v2/",
		PantheonAPIURL:           "https://terminus.pantheon.io/api/",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewSettings() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSettings_Defaults(t *testing.T) {
	r := NewResolverWithPaths(ResolverConfig{Defaults: Defaults()}, "", "")
	got, err := NewSettings(r.Resolve())
	if err != nil {
		t.Fatal(err)
	}
	if got.WorkflowMaxWait != 10*time.Minute || !got.CredentialCache || got.PageSize != 0 {
		t.Errorf("defaults = %+v", got)
	}
}

func TestNewSettings_Invalid(t *testing.T) {
	tests := map[string]string{
		"BUILD_TOOLS_PROVIDER_PAGE_SIZE": "many",
		"BUILD_TOOLS_MULTIDEV_KEEP":      "-1",
		"BUILD_TOOLS_WORKFLOW_MAX_WAIT":  "soon",
		"BUILD_TOOLS_CREDENTIAL_CACHE":   "maybe",
	}
	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			r := NewResolverWithPaths(ResolverConfig{
				EnvPrefix: EnvPrefix,
				LookupEnv: envOf(map[string]string{env: value}),
				Defaults:  Defaults(),
			}, "", "")
			_, err := NewSettings(r.Resolve())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "(from env)") {
				t.Errorf("error should name the source: %v", err)
			}
		})
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName(EnvPrefix, "gitlab-url"); got != "BUILD_TOOLS_GITLAB_URL" {
		t.Errorf("EnvName() = %q", got)
	}
}

func TestResolver_Origin(t *testing.T) {
	r := NewResolverWithPaths(ResolverConfig{EnvPrefix: EnvPrefix}, "/home/ada/.config/build-tools/config.yaml", "/src/site/.build-tools.yaml")
	tests := []struct {
		src  Source
		want string
	}{
		{SourceDefault, "default"},
		{SourceGlobal, "/home/ada/.config/build-tools/config.yaml"},
		{SourceLocal, "/src/site/.build-tools.yaml"},
		{SourceEnv, "BUILD_TOOLS_MULTIDEV_KEEP"},
		{SourceFlag, "flag"},
	}
	for _, tt := range tests {
		if got := r.Origin(KeyMultidevKeep, tt.src); got != tt.want {
			t.Errorf("Origin(%s) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
