package repository

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
)

// CredentialRepository stores provider API keys fernet-encrypted in the
// api_credential table. Keys are returned in position order, which is the
// order the gateway rotates through them.
type CredentialRepository struct {
	db  *sql.DB
	key *fernet.Key
}

// NewCredentialRepository creates a CredentialRepository. The fernet key is
// used for encryption at rest; it never leaves the process.
func NewCredentialRepository(db *sql.DB, key *fernet.Key) *CredentialRepository {
	return &CredentialRepository{db: db, key: key}
}

// Replace removes any stored credentials for the provider and stores the
// given ordered keys encrypted.
func (r *CredentialRepository) Replace(provider string, keys []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin credential replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM api_credential WHERE provider = ?`, provider); err != nil {
		return fmt.Errorf("failed to clear credentials for %s: %w", provider, err)
	}

	for position, apiKey := range keys {
		token, err := fernet.EncryptAndSign([]byte(apiKey), r.key)
		if err != nil {
			return fmt.Errorf("failed to encrypt credential %d for %s: %w", position, provider, err)
		}
		_, err = tx.Exec(
			`INSERT INTO api_credential (id, provider, position, token) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), provider, position, string(token),
		)
		if err != nil {
			return fmt.Errorf("failed to insert credential %d for %s: %w", position, provider, err)
		}
	}

	return tx.Commit()
}

// Get returns the provider's decrypted keys in position order, or
// apperrors.ErrCredentialNotFound when none are stored. Tokens that fail
// verification are skipped; a fully unreadable set reads as not found.
func (r *CredentialRepository) Get(provider string) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT token FROM api_credential WHERE provider = ? ORDER BY position`,
		provider,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query api_credential: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan api_credential row: %w", err)
		}
		plaintext := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{r.key})
		if plaintext == nil {
			log.Printf("Skipping undecryptable credential for %s", provider)
			continue
		}
		keys = append(keys, string(plaintext))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api_credential: %w", err)
	}

	if len(keys) == 0 {
		return nil, apperrors.ErrCredentialNotFound
	}
	return keys, nil
}
