package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

// Config selects the password hashing scheme and its cost parameters.
type Config struct {
	Algorithm     Algorithm `yaml:"algorithm"`
	BcryptCost    int       `yaml:"bcrypt_cost"`
	Argon2Time    uint32    `yaml:"argon2_time"`
	Argon2Memory  uint32    `yaml:"argon2_memory"` // KiB
	Argon2Threads uint8     `yaml:"argon2_threads"`
}

func (c *Config) ApplyDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmArgon2id
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.Argon2Time == 0 {
		c.Argon2Time = 1
	}
	if c.Argon2Memory == 0 {
		c.Argon2Memory = 64 * 1024
	}
	if c.Argon2Threads == 0 {
		c.Argon2Threads = 4
	}
}

func (c *Config) Validate() error {
	switch c.Algorithm {
	case AlgorithmArgon2id, AlgorithmBcrypt:
	default:
		return fmt.Errorf("unsupported algorithm %q (use argon2id or bcrypt)", c.Algorithm)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d (got %d)", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.Argon2Memory < 8*uint32(c.Argon2Threads) {
		return fmt.Errorf("argon2_memory must be at least 8 KiB per thread (got %d)", c.Argon2Memory)
	}
	return nil
}
