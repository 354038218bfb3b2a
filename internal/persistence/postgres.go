package persistence

import (
	"context"

	"restauro/internal/infra"
	"restauro/internal/sqlinline"
)

// PostgresStore keeps values in the client_kv table.
type PostgresStore struct {
	sql infra.SQLExecutor
}

func NewPostgresStore(sql infra.SQLExecutor) *PostgresStore {
	return &PostgresStore{sql: sql}
}

// Migrate creates the client_kv table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QCreateClientKV)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectClientKV, key).Scan(&value); err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertClientKV, key, string(value))
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteClientKV, key)
	return err
}
