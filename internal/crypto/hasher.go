package crypto

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMismatch        = errors.New("password does not match")
	ErrUnknownFormat   = errors.New("unrecognised password digest format")
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrPasswordTooLong = errors.New("password exceeds the scheme's length limit")
)

// Hasher turns plaintext passwords into storable digests and checks
// candidates against them. Verify returns nil on a match.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) error
}

// Argon2Hasher hashes with argon2id and a random per-password salt.
// Digests are encoded as $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$HASH.
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

func NewArgon2Hasher(time, memory uint32, threads uint8) *Argon2Hasher {
	return &Argon2Hasher{
		time:    time,
		memory:  memory,
		threads: threads,
		keyLen:  32,
		saltLen: 16,
	}
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (h *Argon2Hasher) Verify(password, digest string) error {
	// ["", "argon2id", "v=19", "m=65536,t=1,p=4", salt, hash]
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrUnknownFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ErrUnknownFormat
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	if memory == 0 || time == 0 || threads == 0 {
		return fmt.Errorf("%w: zero cost parameter", ErrUnknownFormat)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %v", ErrUnknownFormat, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("%w: hash: %v", ErrUnknownFormat, err)
	}
	if len(expected) == 0 {
		return fmt.Errorf("%w: empty hash", ErrUnknownFormat)
	}

	candidate := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(expected)))
	if subtle.ConstantTimeCompare(candidate, expected) != 1 {
		return ErrMismatch
	}
	return nil
}

// matches reports whether digest was produced by an argon2id hasher with
// the same cost parameters.
func (h *Argon2Hasher) matches(digest string) bool {
	prefix := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$", argon2.Version, h.memory, h.time, h.threads)
	return strings.HasPrefix(digest, prefix)
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
}

func (h *BcryptHasher) matches(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	return err == nil && cost == h.cost
}

// MD5Hasher reproduces the unsalted hex md5 digests stored by the previous
// storefront backend. It is only used to verify imported rows.
type MD5Hasher struct{}

// Digest is deterministic: the same input always yields the same 32
// lowercase hex characters.
func (MD5Hasher) Digest(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (h MD5Hasher) Hash(password string) (string, error) {
	return h.Digest(password), nil
}

func (h MD5Hasher) Verify(password, digest string) error {
	if !isMD5Digest(digest) {
		return ErrUnknownFormat
	}
	if subtle.ConstantTimeCompare([]byte(h.Digest(password)), []byte(strings.ToLower(digest))) != 1 {
		return ErrMismatch
	}
	return nil
}

func isMD5Digest(digest string) bool {
	if len(digest) != md5.Size*2 {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$")
}

// MultiHasher hashes new passwords with its primary scheme and verifies
// against whichever supported scheme a stored digest was written with.
type MultiHasher struct {
	primary Hasher
	argon2  *Argon2Hasher
	bcrypt  *BcryptHasher
	legacy  MD5Hasher
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *MultiHasher) Verify(password, digest string) error {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return m.argon2.Verify(password, digest)
	case isBcryptDigest(digest):
		return m.bcrypt.Verify(password, digest)
	case isMD5Digest(digest):
		return m.legacy.Verify(password, digest)
	default:
		return ErrUnknownFormat
	}
}

// NeedsRehash reports whether digest should be replaced by a fresh hash
// from the primary scheme after the next successful verification.
func (m *MultiHasher) NeedsRehash(digest string) bool {
	switch p := m.primary.(type) {
	case *Argon2Hasher:
		return !p.matches(digest)
	case *BcryptHasher:
		return !p.matches(digest)
	default:
		return false
	}
}

// NewHasher builds the configured hashing scheme. Legacy md5 digests always
// verify but are never produced.
func NewHasher(cfg Config) (*MultiHasher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &MultiHasher{
		argon2: NewArgon2Hasher(cfg.Argon2Time, cfg.Argon2Memory, cfg.Argon2Threads),
		bcrypt: NewBcryptHasher(cfg.BcryptCost),
	}
	switch cfg.Algorithm {
	case AlgorithmBcrypt:
		m.primary = m.bcrypt
	default:
		m.primary = m.argon2
	}
	return m, nil
}
