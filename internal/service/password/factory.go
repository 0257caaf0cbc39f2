package password

import (
	"fmt"
	"log/slog"

	"github.com/templui/authcore/internal/config"
)

// NewFromConfig creates a Hasher based on configuration
func NewFromConfig(cfg *config.Config) (*Hasher, error) {
	algorithm := cfg.PasswordHasher

	slog.Info("initializing password hasher", "algorithm", algorithm)

	switch algorithm {
	case AlgorithmBcrypt, "":
		return NewBcrypt(cfg.BcryptCost)

	case AlgorithmArgon2id:
		if cfg.Argon2Threads > 255 {
			return nil, fmt.Errorf("ARGON2_THREADS must be at most 255")
		}
		if cfg.Argon2Time < 0 || cfg.Argon2MemoryKB < 0 || cfg.Argon2Threads < 0 {
			return nil, fmt.Errorf("ARGON2_* parameters must be positive")
		}
		return NewArgon2id(Argon2Params{
			Time:     uint32(cfg.Argon2Time),
			MemoryKB: uint32(cfg.Argon2MemoryKB),
			Threads:  uint8(cfg.Argon2Threads),
		})

	default:
		return nil, fmt.Errorf("unknown password hasher: %s (supported: bcrypt, argon2id)", algorithm)
	}
}
