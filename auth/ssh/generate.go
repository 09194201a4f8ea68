package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gossh "golang.org/x/crypto/ssh"
)

// KeyPair is a generated key pair on disk.
type KeyPair struct {
	// PrivatePath is the OpenSSH private key file.
	PrivatePath string

	// PrivateKey is the PEM-encoded private key.
	PrivateKey string

	// Public describes the matching .pub file.
	Public *KeyInfo
}

// GenerateKeyPair creates an ed25519 key pair as dir/name and
// dir/name.pub. Existing files are never overwritten.
func GenerateKeyPair(dir, name, comment string) (*KeyPair, error) {
	privPath := filepath.Join(dir, name)
	pubPath := privPath + ".pub"
	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrKeyExists, p)
		}
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}

	block, err := gossh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(block)

	sshPub, err := gossh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	authorized := strings.TrimSpace(string(gossh.MarshalAuthorizedKey(sshPub)))
	if comment != "" {
		authorized += " " + comment
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(authorized+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}

	info, err := ParsePublicKey(pubPath, authorized)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PrivatePath: privPath, PrivateKey: string(privPEM), Public: info}, nil
}
