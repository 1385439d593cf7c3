package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"distill/internal/cache"
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		panic(fmt.Sprintf("storage: zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("storage: zstd decoder: %v", err))
	}
}

// AskStore is a cache.Store backed by the ask_cache table. Rows are keyed by
// a blake3 digest of the identity and prompt; both texts are kept zstd
// compressed so a lookup can confirm the full key.
type AskStore struct {
	db *DB
}

var _ cache.Store = (*AskStore)(nil)

// IdentityStats summarizes the rows stored for one provider identity.
type IdentityStats struct {
	Identity    string `json:"identity"`
	Entries     int    `json:"entries"`
	PromptBytes int64  `json:"prompt_bytes"`
}

// NewAskStore returns an AskStore over db.
func NewAskStore(db *DB) *AskStore {
	return &AskStore{db: db}
}

// Digest returns the row key for k. The zero byte separates the identity
// from the prompt so that no two distinct keys share an input.
func Digest(k cache.Key) []byte {
	h := blake3.New()
	_, _ = h.Write([]byte(k.Identity))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.Prompt))
	return h.Sum(nil)
}

func (s *AskStore) Get(ctx context.Context, key cache.Key) (string, bool, error) {
	var identity string
	var prompt, response []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT identity, prompt, response FROM ask_cache WHERE digest = ?", Digest(key),
	).Scan(&identity, &prompt, &response)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query ask: %w", err)
	}

	storedPrompt, err := decoder.DecodeAll(prompt, nil)
	if err != nil {
		return "", false, fmt.Errorf("decode prompt: %w", err)
	}
	if identity != key.Identity || !bytes.Equal(storedPrompt, []byte(key.Prompt)) {
		return "", false, nil
	}

	out, err := decoder.DecodeAll(response, nil)
	if err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	return string(out), true, nil
}

func (s *AskStore) Set(ctx context.Context, key cache.Key, response string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ask_cache (digest, identity, prompt, response, prompt_len)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO UPDATE SET
			identity = excluded.identity,
			prompt = excluded.prompt,
			response = excluded.response,
			prompt_len = excluded.prompt_len,
			created_at = CURRENT_TIMESTAMP`,
		Digest(key),
		key.Identity,
		encoder.EncodeAll([]byte(key.Prompt), nil),
		encoder.EncodeAll([]byte(response), nil),
		len(key.Prompt),
	)
	if err != nil {
		return fmt.Errorf("store ask: %w", err)
	}
	return nil
}

func (s *AskStore) Contains(ctx context.Context, key cache.Key) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *AskStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ask_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("count asks: %w", err)
	}
	return n, nil
}

// Stats groups stored entries by identity, ordered by identity.
func (s *AskStore) Stats(ctx context.Context) ([]IdentityStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, COUNT(*), COALESCE(SUM(prompt_len), 0)
		FROM ask_cache GROUP BY identity ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []IdentityStats
	for rows.Next() {
		var st IdentityStats
		if err := rows.Scan(&st.Identity, &st.Entries, &st.PromptBytes); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Clear removes every entry and returns how many were deleted.
func (s *AskStore) Clear(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithTx(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM ask_cache")
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear asks: %w", err)
	}
	return n, nil
}
