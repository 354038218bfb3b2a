// Package credentials keeps upstream API keys in the integration_tokens
// table so the server can start without them in its environment.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restauro/internal/infra"
	"restauro/internal/sqlinline"
)

// Provider names a row in integration_tokens.
type Provider string

const Gemini Provider = "gemini"

var ErrEmptyToken = errors.New("credentials: token is empty")

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Migrate creates integration_tokens when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QCreateIntegrationTokens); err != nil {
		return fmt.Errorf("credentials: migrate: %w", err)
	}
	return nil
}

// Get returns the stored token for provider, or "" when none is stored.
func (s *Store) Get(ctx context.Context, provider Provider) (string, error) {
	var token string
	err := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, string(provider)).Scan(&token)
	switch {
	case infra.IsNoRows(err):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("credentials: read %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// Set stores token for provider, replacing any previous value.
func (s *Store) Set(ctx context.Context, provider Provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, string(provider), token); err != nil {
		return fmt.Errorf("credentials: store %s token: %w", provider, err)
	}
	return nil
}

// Resolve prefers an explicit token and falls back to the stored one.
func (s *Store) Resolve(ctx context.Context, provider Provider, explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	if s == nil {
		return "", nil
	}
	return s.Get(ctx, provider)
}

// Mask hides all but the last four characters of token.
func Mask(token string) string {
	const visible = 4
	if len(token) <= visible {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-visible) + token[len(token)-visible:]
}
