package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/buildtools/auth/ssh"
)

func newSiteCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Work with the site provider",
	}

	var (
		siteProvider string
		keyFile      string
		deployKey    string
		comment      string
	)
	addKey := &cobra.Command{
		Use:   "add-ssh-key",
		Short: "Register an SSH public key with the site provider",
		Long: `Register an SSH public key with the site provider.

By default the preferred key in ~/.ssh is used. --key names a .pub file
instead, and --deploy-key uses (or generates) a dedicated pair in ~/.ssh
for a CI server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			key, err := selectKey(keyFile, deployKey, comment, func(info *ssh.KeyInfo) {
				fmt.Fprintf(a.out, "generated %s\n", info.Path)
			})
			if err != nil {
				return err
			}

			sp, err := a.siteProvider(siteProvider)
			if err != nil {
				return err
			}
			if err := a.authenticate(ctx, sp); err != nil {
				return err
			}
			if err := sp.AddSSHKey(ctx, key.PublicKey); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "added %s %s\n", key.KeyType, key.Fingerprint)
			return nil
		},
	}
	f := addKey.Flags()
	f.StringVar(&siteProvider, "site-provider", "pantheon", "site provider alias")
	f.StringVar(&keyFile, "key", "", "public key file to register")
	f.StringVar(&deployKey, "deploy-key", "", "name of a dedicated key pair in ~/.ssh, generated when missing")
	f.StringVar(&comment, "comment", "", "comment for a generated deploy key")
	addKey.MarkFlagsMutuallyExclusive("key", "deploy-key")

	cmd.AddCommand(addKey)
	return cmd
}

// selectKey picks the key to register. generated is called when a deploy
// key pair had to be created.
func selectKey(keyFile, deployKey, comment string, generated func(*ssh.KeyInfo)) (*ssh.KeyInfo, error) {
	if keyFile != "" {
		return ssh.ReadPublicKey(keyFile)
	}
	dir, err := ssh.DefaultKeyDir()
	if err != nil {
		return nil, err
	}
	if deployKey == "" {
		return dir.Preferred()
	}
	info, created, err := dir.DeployKey(deployKey, comment)
	if err != nil {
		return nil, err
	}
	if created {
		generated(info)
	}
	return info, nil
}
