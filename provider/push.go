package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/randalmurphal/buildtools/git"
	"github.com/randalmurphal/buildtools/shell"
)

// PushWithCredentials pushes HEAD of dir to branch on remoteURL, embedding
// user and secret in the URL. The secret, raw and URL-escaped, is
// registered with the executor's redactor first so it never reaches logs
// or errors.
func PushWithCredentials(ctx context.Context, exec *shell.Executor, dir, remoteURL, user, secret, branch string) error {
	exec.Redactor().Add(secret)

	target, err := git.AuthenticatedURL(remoteURL, user, secret)
	if err != nil {
		return err
	}
	if u, err := url.Parse(target); err == nil && u.User != nil {
		_, escaped, _ := strings.Cut(u.User.String(), ":")
		exec.Redactor().Add(escaped)
	}

	refspec := "HEAD"
	if branch != "" {
		refspec = "HEAD:refs/heads/" + branch
	}
	return git.NewContext(dir, exec).Push(ctx, target, refspec, false)
}
