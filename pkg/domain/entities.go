package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordMeta captures identifiers and audit fields shared across entities.
type RecordMeta struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt time.Time `bun:",soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureID assigns a UUID when the struct is about to be persisted.
func (m *RecordMeta) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// JSONMap persists arbitrary metadata fields as JSON.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if m == nil {
		return errors.New("JSONMap: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("JSONMap: unsupported type %T", value)
	}
}

// State tracks where a record sits in its lifecycle.
type State string

const (
	StateActive   State = "active"
	StateArchived State = "archived"
	StateDeleted  State = "deleted"
)

// Valid reports whether the state is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateArchived, StateDeleted:
		return true
	}
	return false
}

// Kind classifies the configuration artifact a record holds.
type Kind string

const (
	KindEnvVar     Kind = "env_var"
	KindConfigFile Kind = "config_file"
	KindKeyValue   Kind = "key_value"
)

// Valid reports whether the kind is one of the known artifact kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEnvVar, KindConfigFile, KindKeyValue:
		return true
	}
	return false
}

// Format labels the syntax of a record's content. The engine treats it as an
// opaque tag; interpretation belongs to validators, scaffolds, and hosts.
type Format string

// Formats recognised by the bundled scaffolds.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatINI  Format = "ini"
	FormatCFG  Format = "cfg"
	FormatEnv  Format = "env"
	FormatNix  Format = "nix"
)

// DefaultSet groups records that were created without an explicit set label.
const DefaultSet = "default"

// EncryptedBlob holds the sealed payload of an encrypted record. Salt is the
// per-record KDF input, Nonce is fresh for every seal, and Ciphertext carries
// the AEAD output including its authentication tag.
type EncryptedBlob struct {
	Scheme     string `json:"scheme"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// IsZero reports whether the blob carries no sealed payload.
func (b EncryptedBlob) IsZero() bool {
	return b.Scheme == "" && len(b.Salt) == 0 && len(b.Nonce) == 0 && len(b.Ciphertext) == 0
}

func (b EncryptedBlob) Value() (driver.Value, error) {
	if b.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(b)
}

func (b *EncryptedBlob) Scan(value any) error {
	if b == nil {
		return errors.New("EncryptedBlob: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*b = EncryptedBlob{}
		return nil
	case []byte:
		if len(v) == 0 {
			*b = EncryptedBlob{}
			return nil
		}
		return json.Unmarshal(v, b)
	case string:
		if v == "" {
			*b = EncryptedBlob{}
			return nil
		}
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("EncryptedBlob: unsupported type %T", value)
	}
}

// ConfigRecord is a single archived or live configuration artifact. Payload
// lives either in Plain or sealed inside Blob, never both. Version increments
// on every successful write and backs optimistic concurrency checks.
type ConfigRecord struct {
	bun.BaseModel `bun:"table:config_records"`
	RecordMeta

	Name string `bun:",nullzero,notnull" json:"name"`
	// The column avoids the bare SQL keyword "set".
	Set       string `bun:"set_name,nullzero,notnull" json:"set"`
	Kind      Kind   `bun:",nullzero,notnull" json:"kind"`
	Format    Format `bun:",nullzero" json:"format,omitempty"`
	Encrypted bool   `bun:",nullzero" json:"encrypted"`

	Plain       []byte        `bun:",nullzero" json:"-"`
	Blob        EncryptedBlob `bun:"type:jsonb,nullzero" json:"-"`
	ContentHash string        `bun:",nullzero" json:"content_hash,omitempty"`
	Size        int64         `bun:",nullzero" json:"size"`
	Metadata    JSONMap       `bun:"type:jsonb,nullzero" json:"metadata,omitempty"`

	State             State         `bun:",nullzero,notnull" json:"state"`
	Reason            string        `bun:",nullzero" json:"reason,omitempty"`
	ArchivedAt        time.Time     `bun:",nullzero" json:"archived_at,omitempty"`
	RetentionOverride time.Duration `bun:",nullzero" json:"retention_override,omitempty"`

	Version int64 `bun:",notnull,default:1" json:"version"`
}

// Payload returns the stored plaintext for unencrypted records. Encrypted
// payloads must go through the crypto boundary instead.
func (r *ConfigRecord) Payload() []byte {
	if r.Encrypted {
		return nil
	}
	return r.Plain
}

// ClearPayload drops every field that could reveal content. Used when a
// record is reduced to a tombstone.
func (r *ConfigRecord) ClearPayload() {
	r.Plain = nil
	r.Blob = EncryptedBlob{}
	r.ContentHash = ""
	r.Size = 0
}

// RetentionSettings is the store-wide retention policy row. Period bounds how
// long archived records are protected from removal; AutoRemove lets sweeps
// purge eligible records instead of only reporting them.
type RetentionSettings struct {
	bun.BaseModel `bun:"table:vault_settings"`
	RecordMeta

	RetentionPeriod time.Duration `bun:",nullzero,notnull" json:"retention_period"`
	AutoRemove      bool          `bun:",nullzero" json:"auto_remove"`
}

// VaultMeta stores the vault-level password check material. Salt feeds the
// key derivation and Check holds the derived verifier; neither reveals the
// password. Created lazily when the first encrypted record is sealed.
type VaultMeta struct {
	bun.BaseModel `bun:"table:vault_meta"`
	RecordMeta

	Salt  []byte `bun:",nullzero,notnull" json:"-"`
	Check []byte `bun:",nullzero,notnull" json:"-"`
}
