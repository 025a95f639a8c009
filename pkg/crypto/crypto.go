// Package crypto is the vault's crypto boundary. Payloads are sealed with
// XChaCha20-Poly1305 under keys derived from the caller's password via
// Argon2id. Nothing in here caches passwords or derived keys; every call
// derives, uses, and wipes.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/goliatone/go-configvault/pkg/domain"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Scheme identifies the sealing construction recorded on every blob.
const Scheme = "argon2id-xchacha20poly1305"

var (
	// ErrPasswordRequired is returned when an empty password reaches the
	// boundary.
	ErrPasswordRequired = errors.New("crypto: password required")

	// ErrKeyDerivation is returned when key material cannot be produced,
	// for example when the random source fails. It never signals a wrong
	// password.
	ErrKeyDerivation = errors.New("crypto: key derivation failed")

	// ErrAuthentication is returned when a sealed payload fails to open.
	// A wrong password and a tampered ciphertext are indistinguishable.
	ErrAuthentication = errors.New("crypto: authentication failed")

	// ErrUnsupportedScheme is returned when a blob was sealed with a
	// construction this boundary does not know.
	ErrUnsupportedScheme = errors.New("crypto: unsupported scheme")
)

// Params tune the Argon2id derivation. The defaults follow the library
// recommendations and keep a single derivation well under interactive
// latency on commodity hardware.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	SaltSize  int
	KeySize   int
}

// DefaultParams returns the derivation parameters used when none are given.
func DefaultParams() Params {
	return Params{
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   4,
		SaltSize:  16,
		KeySize:   chacha20poly1305.KeySize,
	}
}

func (p Params) validate() error {
	if p.Time == 0 {
		return fmt.Errorf("crypto: time parameter must be positive")
	}
	if p.MemoryKiB < 8*1024 {
		return fmt.Errorf("crypto: memory parameter must be at least 8 MiB")
	}
	if p.Threads == 0 {
		return fmt.Errorf("crypto: threads parameter must be positive")
	}
	if p.SaltSize < 16 {
		return fmt.Errorf("crypto: salt size must be at least 16 bytes")
	}
	if p.KeySize != chacha20poly1305.KeySize {
		return fmt.Errorf("crypto: key size must be %d bytes", chacha20poly1305.KeySize)
	}
	return nil
}

// Boundary seals and opens record payloads. The zero value is not usable;
// construct with New.
type Boundary struct {
	params Params
}

// New builds a boundary with the given parameters. A zero Params value
// selects DefaultParams.
func New(params Params) (*Boundary, error) {
	if params == (Params{}) {
		params = DefaultParams()
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Boundary{params: params}, nil
}

// Encrypt seals plaintext under a key derived from password. Each call uses
// a fresh salt and nonce, so identical plaintexts never produce identical
// blobs.
func (b *Boundary) Encrypt(plaintext, password []byte) (domain.EncryptedBlob, error) {
	if len(password) == 0 {
		return domain.EncryptedBlob{}, ErrPasswordRequired
	}
	salt, err := b.generateSalt()
	if err != nil {
		return domain.EncryptedBlob{}, err
	}
	key := b.deriveKey(password, salt)
	defer Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return domain.EncryptedBlob{}, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return domain.EncryptedBlob{}, fmt.Errorf("%w: nonce: %v", ErrKeyDerivation, err)
	}
	return domain.EncryptedBlob{
		Scheme:     Scheme,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Decrypt opens a sealed blob with a key derived from password and the
// blob's own salt.
func (b *Boundary) Decrypt(blob domain.EncryptedBlob, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrPasswordRequired
	}
	if blob.Scheme != Scheme {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, blob.Scheme)
	}
	if len(blob.Salt) != b.params.SaltSize {
		return nil, fmt.Errorf("%w: malformed salt", ErrAuthentication)
	}
	key := b.deriveKey(password, blob.Salt)
	defer Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	if len(blob.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: malformed nonce", ErrAuthentication)
	}
	plain, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plain, nil
}

// NewPasswordCheck derives the vault-level verifier for a password. The salt
// is used only for verification and never seals payloads.
func (b *Boundary) NewPasswordCheck(password []byte) (salt, check []byte, err error) {
	if len(password) == 0 {
		return nil, nil, ErrPasswordRequired
	}
	salt, err = b.generateSalt()
	if err != nil {
		return nil, nil, err
	}
	return salt, b.deriveKey(password, salt), nil
}

// VerifyPassword re-derives the verifier and compares in constant time.
func (b *Boundary) VerifyPassword(password, salt, check []byte) bool {
	if len(password) == 0 || len(salt) == 0 || len(check) == 0 {
		return false
	}
	derived := b.deriveKey(password, salt)
	defer Zero(derived)
	return subtle.ConstantTimeCompare(derived, check) == 1
}

func (b *Boundary) deriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, b.params.Time, b.params.MemoryKiB, b.params.Threads, uint32(b.params.KeySize))
}

func (b *Boundary) generateSalt() ([]byte, error) {
	salt := make([]byte, b.params.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrKeyDerivation, err)
	}
	return salt, nil
}

// Zero wipes a byte slice holding sensitive material.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
