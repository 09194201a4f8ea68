package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/randalmurphal/buildtools/config"
	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	"github.com/randalmurphal/buildtools/git"
	"github.com/randalmurphal/buildtools/pr"
	"github.com/randalmurphal/buildtools/provider"
	"github.com/randalmurphal/buildtools/provider/registry"
	"github.com/randalmurphal/buildtools/shell"
)

// app holds what every command shares. It is filled by setup once flags
// are parsed.
type app struct {
	in     *os.File
	out    io.Writer
	errOut io.Writer

	verbose bool
	envFile string
	flags   *pflag.FlagSet

	// runner executes git. Nil runs real commands.
	runner shell.Runner

	logger    *slog.Logger
	resolver  *config.Resolver
	resolved  *config.Resolved
	settings  config.Settings
	executor  *shell.Executor
	creds     *credential.Manager
	providers *provider.Manager
}

func newApp(in *os.File, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut}
}

// envLookup resolves the process environment first, then values read
// from a .env file.
func envLookup(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// flagOptions exposes explicitly set flags as credential options.
type flagOptions struct {
	fs *pflag.FlagSet
}

// Lookup implements credential.OptionSource.
func (o flagOptions) Lookup(key string) (string, bool) {
	f := o.fs.Lookup(key)
	if f == nil || !f.Changed {
		return "", false
	}
	return f.Value.String(), true
}

// credentialKeys returns the option key of every credential any registered
// provider can request, dependents included.
func credentialKeys(regs []provider.Registration) []string {
	seen := map[string]bool{}
	var keys []string
	var walk func(r *credential.Request)
	walk = func(r *credential.Request) {
		for _, dep := range r.Dependents {
			walk(dep)
		}
		if !seen[r.Key()] {
			seen[r.Key()] = true
			keys = append(keys, r.Key())
		}
	}
	for _, reg := range regs {
		p, err := reg.New(provider.Options{})
		if err != nil {
			continue
		}
		if client, ok := p.(provider.CredentialClient); ok {
			for _, r := range client.CredentialRequests() {
				walk(r)
			}
		}
	}
	return keys
}

// cacheUser scopes the credential cache to the local account.
func cacheUser(lookup func(string) (string, bool)) string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	v, _ := lookup("USER")
	return v
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	dotenv, err := godotenv.Read(a.envFile)
	if err != nil {
		if cmd.Flags().Changed("env-file") || !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", a.envFile, err)
		}
		dotenv = map[string]string{}
	}
	lookup := envLookup(dotenv)

	a.resolver = config.NewAppResolver(lookup)
	a.resolved = a.resolver.Resolve()
	a.settings, err = config.NewSettings(a.resolved)
	if err != nil {
		return err
	}

	credCfg := credential.ManagerConfig{
		LookupEnv:   lookup,
		MaxAttempts: a.settings.CredentialMaxAttempts,
		Logger:      a.logger,
	}
	if a.settings.CredentialCache {
		path, err := credential.DefaultFileStorePath(config.AppName)
		if err != nil {
			return err
		}
		credCfg.UserID = cacheUser(lookup)
		credCfg.Store = credential.NewFileStore(path)
	}
	a.creds = credential.NewManager(credCfg)

	a.executor = shell.NewExecutor(a.runner, nil, a.logger)
	a.providers = provider.NewManager(provider.ManagerConfig{
		Registrations: registry.Default(),
		Credentials:   a.creds,
		Options: provider.Options{
			Settings: a.settings,
			Executor: a.executor,
			Logger:   a.logger,
		},
		Logger: a.logger,
	})
	return nil
}

// authenticate registers the providers' credential requests, applies
// flags, prompts for anything still missing and hands the result to the
// providers.
func (a *app) authenticate(ctx context.Context, providers ...provider.Provider) error {
	for _, p := range providers {
		a.providers.InitializeProvider(p)
	}
	if err := a.creds.SetFromOptions(flagOptions{fs: a.flags}); err != nil {
		return err
	}
	if err := a.creds.Ask(ctx, credential.NewTerminalConsole(a.in, a.errOut)); err != nil {
		return err
	}
	return a.providers.ValidateCredentials()
}

// origin returns the remote URL and project id of the working copy.
func (a *app) origin(ctx context.Context) (string, string, error) {
	g := git.NewContext(".", a.executor)
	if !g.IsRepo(ctx) {
		return "", "", clierrors.NewNotInGitRepoError()
	}
	remote, err := g.RemoteURL(ctx, "origin")
	if err != nil {
		return "", "", err
	}
	repo, err := pr.ParseRepoURL(remote)
	if err != nil {
		return "", "", err
	}
	return remote, repo.Project(), nil
}

// gitProvider creates the provider named by alias, or infers it from the
// origin remote when alias is empty.
func (a *app) gitProvider(ctx context.Context, alias string) (provider.GitProvider, error) {
	var (
		p   provider.Provider
		err error
	)
	if alias != "" {
		p, err = a.providers.CreateProvider(alias, provider.CapabilityGit)
	} else {
		var remote string
		remote, _, err = a.origin(ctx)
		if err != nil {
			return nil, err
		}
		p, err = a.providers.InferProvider(remote, provider.CapabilityGit)
	}
	if err != nil {
		return nil, err
	}
	return p.(provider.GitProvider), nil
}

func (a *app) siteProvider(alias string) (provider.SiteProvider, error) {
	p, err := a.providers.CreateProvider(alias, provider.CapabilitySite)
	if err != nil {
		return nil, err
	}
	return p.(provider.SiteProvider), nil
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "build-tools",
		Short:         "Manage providers, credentials and environments for site builds",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file supplying credentials")
	for _, key := range credentialKeys(registry.Default()) {
		pf.String(key, "", fmt.Sprintf("value for the %s credential", strings.ReplaceAll(key, "-", " ")))
	}
	a.flags = pf

	root.AddCommand(
		newProvidersCommand(a),
		newCredentialsCommand(a),
		newWorkflowCommand(a),
		newMultidevCommand(a),
		newSiteCommand(a),
		newConfigCommand(a),
		newProjectCommand(a),
	)
	return root
}
