package ssh

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	gossh "golang.org/x/crypto/ssh"
)

// KeyInfo describes one OpenSSH public key.
type KeyInfo struct {
	// Path is the .pub file the key was read from, if any.
	Path string

	// PublicKey is the trimmed authorized_keys line.
	PublicKey string

	// KeyType is the algorithm, e.g. "ssh-ed25519".
	KeyType string

	// Fingerprint is the "SHA256:..." fingerprint.
	Fingerprint string

	Comment string
}

// preferredKeys is the lookup order of KeyDir.Preferred.
var preferredKeys = []string{"id_ed25519.pub", "id_ecdsa.pub", "id_rsa.pub"}

// KeyDir is a directory of OpenSSH key files.
type KeyDir string

// DefaultKeyDir returns ~/.ssh.
func DefaultKeyDir() (KeyDir, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return KeyDir(filepath.Join(home, ".ssh")), nil
}

// Preferred returns the user's main key: the first readable of
// id_ed25519, id_ecdsa and id_rsa.
func (d KeyDir) Preferred() (*KeyInfo, error) {
	for _, name := range preferredKeys {
		if info, err := ReadPublicKey(filepath.Join(string(d), name)); err == nil {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w in %s", ErrNoSSHKeys, d)
}

// Keys returns every parseable *.pub key in the directory, by file name.
// Unparseable files are skipped.
func (d KeyDir) Keys() ([]*KeyInfo, error) {
	entries, err := os.ReadDir(string(d))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoSSHKeys, d)
	}
	if err != nil {
		return nil, fmt.Errorf("read ssh directory: %w", err)
	}

	var keys []*KeyInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pub") {
			continue
		}
		if info, err := ReadPublicKey(filepath.Join(string(d), entry.Name())); err == nil {
			keys = append(keys, info)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSSHKeys, d)
	}
	slices.SortFunc(keys, func(a, b *KeyInfo) int { return strings.Compare(a.Path, b.Path) })
	return keys, nil
}

// DeployKey returns the public half of the pair named name, generating an
// ed25519 pair first when none exists. created reports whether it did.
func (d KeyDir) DeployKey(name, comment string) (info *KeyInfo, created bool, err error) {
	info, err = ReadPublicKey(filepath.Join(string(d), name+".pub"))
	if err == nil {
		return info, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}
	pair, err := GenerateKeyPair(string(d), name, comment)
	if err != nil {
		return nil, false, err
	}
	return pair.Public, true, nil
}

// ReadPublicKey reads and parses a .pub file.
func ReadPublicKey(path string) (*KeyInfo, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-chosen key file
	if err != nil {
		return nil, err
	}
	return ParsePublicKey(path, string(data))
}

// ParsePublicKey parses an authorized_keys line. path is recorded as is.
func ParsePublicKey(path, line string) (*KeyInfo, error) {
	line = strings.TrimSpace(line)
	if len(strings.Fields(line)) < 2 {
		return nil, ErrInvalidKeyFormat
	}
	key, comment, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	return &KeyInfo{
		Path:        path,
		PublicKey:   line,
		KeyType:     key.Type(),
		Fingerprint: Fingerprint(key),
		Comment:     comment,
	}, nil
}

// ComputeFingerprint returns the SHA256 fingerprint of a wire-format key
// blob, as shown by ssh-keygen -l.
func ComputeFingerprint(blob []byte) string {
	sum := sha256.Sum256(blob)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(sum[:])
}

// Fingerprint returns the SHA256 fingerprint of key.
func Fingerprint(key gossh.PublicKey) string {
	return ComputeFingerprint(key.Marshal())
}
