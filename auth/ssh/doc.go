// Package ssh reads, generates and fingerprints the OpenSSH keys that are
// registered with site providers.
//
// A developer's own key is usually found in ~/.ssh:
//
//	dir, err := ssh.DefaultKeyDir()
//	key, err := dir.Preferred()
//	err = site.AddSSHKey(ctx, key.PublicKey)
//
// CI servers get a dedicated pair instead. DeployKey reuses an existing
// pair and only generates one when it is missing:
//
//	key, created, err := ssh.KeyDir(dir).DeployKey("id_ci", "ci@example.com")
package ssh
