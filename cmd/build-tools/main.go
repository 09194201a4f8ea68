// Command build-tools manages the providers a site build runs against:
// their credentials, Pantheon workflows and multidev environments.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	clierrors "github.com/randalmurphal/buildtools/errors"
)

// Version is set via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand(newApp(os.Stdin, os.Stdout, os.Stderr))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", clierrors.Explain(err))
		if clierrors.IsConfigurationError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
