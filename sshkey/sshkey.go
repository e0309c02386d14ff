// Package sshkey checks SSH public keys before they are stored on a user.
package sshkey

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

var ErrInvalidKey = errors.New("invalid ssh public key")

// Key is a parsed authorized_keys line.
type Key struct {
	PublicKey ssh.PublicKey
	Comment   string
}

// Validate parses a single authorized_keys line without options. Surrounding
// whitespace is ignored; anything after the first key is rejected.
func Validate(line string) (*Key, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.ContainsAny(line, "\r\n") {
		return nil, fmt.Errorf("%w: more than one line", ErrInvalidKey)
	}

	pub, comment, options, rest, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(options) > 0 {
		return nil, fmt.Errorf("%w: options are not allowed", ErrInvalidKey)
	}
	if len(strings.TrimSpace(string(rest))) > 0 {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidKey)
	}
	return &Key{PublicKey: pub, Comment: comment}, nil
}

// String renders the key in canonical "<type> <base64> [comment]" form.
func (k *Key) String() string {
	s := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(k.PublicKey)))
	if k.Comment != "" {
		s += " " + k.Comment
	}
	return s
}

// Fingerprint returns the SHA256 fingerprint as printed by ssh-keygen -l.
func (k *Key) Fingerprint() string {
	return ssh.FingerprintSHA256(k.PublicKey)
}

func (k *Key) Type() string {
	return k.PublicKey.Type()
}
