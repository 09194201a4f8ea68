package main

import (
	"fmt"

	"github.com/spf13/cobra"

	clierrors "github.com/randalmurphal/buildtools/errors"
	"github.com/randalmurphal/buildtools/git"
	"github.com/randalmurphal/buildtools/provider"
	"github.com/randalmurphal/buildtools/state"
)

type createFlags struct {
	gitProvider  string
	ciProvider   string
	siteProvider string
	org          string
	branch       string

	siteName      string
	testSiteName  string
	adminEmail    string
	adminPassword string
	gitEmail      string
}

func newProjectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Set up projects across the git, CI and site providers",
	}

	var f createFlags
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a repository, push the working copy and start its first build",
		Long: `Create a repository for the working copy and start testing it.

The repository is created on the git provider and HEAD is pushed to
--branch (default: the current branch). The git provider's token and the
site settings are then published to the CI provider as build variables,
and a build of the branch is started. An admin password is generated when
--admin-password is not given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.createProject(cmd, args[0], f)
		},
	}
	fl := create.Flags()
	fl.StringVar(&f.gitProvider, "git", "github", "git provider alias")
	fl.StringVar(&f.ciProvider, "ci", "circleci", "CI provider alias")
	fl.StringVar(&f.siteProvider, "site", "pantheon", "site provider alias")
	fl.StringVar(&f.org, "org", "", "organization or group owning the repository (default: your account)")
	fl.StringVar(&f.branch, "branch", "", "branch to push and test (default: the current branch)")
	fl.StringVar(&f.siteName, "site-name", "", "site the build deploys to (default: the repository name)")
	fl.StringVar(&f.testSiteName, "test-site-name", "", "display name of the test site")
	fl.StringVar(&f.adminEmail, "admin-email", "", "admin account email for test installs")
	fl.StringVar(&f.adminPassword, "admin-password", "", "admin account password for test installs")
	fl.StringVar(&f.gitEmail, "git-email", "", "email for commits made by the build")

	cmd.AddCommand(create)
	return cmd
}

func (a *app) createProject(cmd *cobra.Command, name string, f createFlags) error {
	ctx := cmd.Context()

	g := git.NewContext(".", a.executor)
	if !g.IsRepo(ctx) {
		return clierrors.NewNotInGitRepoError()
	}
	branch := f.branch
	if branch == "" {
		current, err := g.CurrentBranch(ctx)
		if err != nil {
			return err
		}
		branch = current
	}
	head, err := g.HeadCommit(ctx)
	if err != nil {
		return err
	}

	gp, err := a.gitProvider(ctx, f.gitProvider)
	if err != nil {
		return err
	}
	p, err := a.providers.CreateProvider(f.ciProvider, provider.CapabilityCI)
	if err != nil {
		return err
	}
	cp := p.(provider.CIProvider)
	sp, err := a.siteProvider(f.siteProvider)
	if err != nil {
		return err
	}
	if err := a.authenticate(ctx, gp, cp, sp); err != nil {
		return err
	}

	ci := state.NewCIState(a.logger)
	ci.StoreState(state.OwnerRepository, gp.Environment())
	ci.StoreState(state.OwnerSite, sp.Environment())

	if f.siteName == "" {
		f.siteName = name
	}
	if f.adminPassword != "" {
		a.executor.Redactor().Add(f.adminPassword)
	}
	for _, kv := range [][2]string{
		{state.KeySiteName, f.siteName},
		{state.KeyTestSiteName, f.testSiteName},
		{state.KeyAdminEmail, f.adminEmail},
		{state.KeyAdminPassword, f.adminPassword},
		{state.KeyGitEmail, f.gitEmail},
	} {
		if kv[1] == "" {
			continue
		}
		if err := ci.Set(state.OwnerSite, kv[0], kv[1]); err != nil {
			return err
		}
	}
	if err := sp.Environment().EnsureAdminPassword(); err != nil {
		return err
	}

	projectID, err := gp.CreateRepository(ctx, f.org, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created %s\n", gp.ProjectURL(projectID))

	if err := gp.PushRepository(ctx, g.Dir(), projectID, branch); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "pushed %s at %s\n", branch, head)

	build := provider.CIContext{
		ProjectID:  projectID,
		GitService: gp.ServiceName(),
		Branch:     branch,
		State:      ci,
	}
	if err := cp.ConfigureServer(ctx, build); err != nil {
		return err
	}
	if err := cp.StartTesting(ctx, build); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "testing %s on %s\n", branch, cp.ServiceName())
	return nil
}
