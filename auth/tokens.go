package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const defaultIDSize = 32

var ErrIDGeneration = errors.New("auth: token id generation failed")

// SecureIDGenerator draws Size random bytes (32 by default) and encodes them
// as unpadded base64url.
type SecureIDGenerator struct {
	Size   int
	Reader io.Reader
}

func (g SecureIDGenerator) Generate(ctx context.Context) (string, error) {
	if err := contextError(ctx); err != nil {
		return "", err
	}
	size := g.Size
	if size <= 0 {
		size = defaultIDSize
	}
	reader := g.Reader
	if reader == nil {
		reader = rand.Reader
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return "", errors.Join(ErrIDGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate(ctx context.Context) (string, error) {
	if err := contextError(ctx); err != nil {
		return "", err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Join(ErrIDGeneration, err)
	}
	return id.String(), nil
}

// Digest returns the hex blake2b-256 digest of a token id. Stores key their
// records by digest so a leaked store does not leak usable bearer tokens.
func Digest(id string) string {
	sum := blake2b.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Fingerprint is a short, log-safe form of Digest.
func Fingerprint(id string) string {
	return Digest(id)[:12]
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
