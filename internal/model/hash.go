// Package model holds the identifier and hash types shared by every depot
// component: UUIDs, tree hashes, tarball hashes, and the transient
// PackageSpec union type.
package model

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// TreeHash is a 20-byte git-tree SHA-1, invariant to timestamps and
// permissions beyond the executable bit.
type TreeHash [20]byte

func (h TreeHash) String() string { return hex.EncodeToString(h[:]) }

func (h TreeHash) IsZero() bool { return h == TreeHash{} }

func (h TreeHash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *TreeHash) UnmarshalText(text []byte) error {
	parsed, err := ParseTreeHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseTreeHash parses a lower-case hex-encoded 20-byte tree hash.
func ParseTreeHash(s string) (TreeHash, error) {
	s = strings.TrimSpace(s)
	var h TreeHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrapf(err, "malformed tree hash %q", s)
	}
	if len(b) != len(h) {
		return h, errors.Errorf("tree hash %q has %d bytes, want %d", s, len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// TarballHash is a 32-byte SHA-256 of a downloaded tarball.
type TarballHash [32]byte

func (h TarballHash) String() string { return hex.EncodeToString(h[:]) }

func (h TarballHash) IsZero() bool { return h == TarballHash{} }

func (h TarballHash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *TarballHash) UnmarshalText(text []byte) error {
	parsed, err := ParseTarballHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseTarballHash parses a lower-case hex-encoded 32-byte SHA-256.
func ParseTarballHash(s string) (TarballHash, error) {
	s = strings.TrimSpace(s)
	var h TarballHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrapf(err, "malformed tarball hash %q", s)
	}
	if len(b) != len(h) {
		return h, errors.Errorf("tarball hash %q has %d bytes, want %d", s, len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}
