package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang/snappy"
	"github.com/google/uuid"
)

// MySQLOptions configures the MySQL-backed document store
type MySQLOptions struct {
	DSN             string
	Compress        bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MySQLStore keeps each collection in its own table, one JSON document per
// row. Payloads are optionally snappy-compressed.
type MySQLStore struct {
	db       *sql.DB
	compress bool
	logger   *slog.Logger
}

// OpenMySQL connects to MySQL and verifies the connection
func OpenMySQL(ctx context.Context, opts MySQLOptions) (*MySQLStore, error) {
	cfg, err := mysql.ParseDSN(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	s := NewMySQLStore(db, opts.Compress)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("Connected to MySQL record store",
		slog.String("addr", cfg.Addr),
		slog.String("database", cfg.DBName),
		slog.Bool("compress", opts.Compress))
	return s, nil
}

// NewMySQLStore wraps an existing connection pool
func NewMySQLStore(db *sql.DB, compress bool) *MySQLStore {
	return &MySQLStore{
		db:       db,
		compress: compress,
		logger:   slog.Default().With(slog.String("component", "mysql_store")),
	}
}

// Ping verifies the database is reachable
func (s *MySQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	return nil
}

// ExistsAndNonEmpty reports whether the collection table exists and has rows
func (s *MySQLStore) ExistsAndNonEmpty(ctx context.Context, collection string) (bool, error) {
	if err := ValidateCollection(collection); err != nil {
		return false, err
	}

	var tables int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
		collection).Scan(&tables)
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", collection, err)
	}
	if tables == 0 {
		return false, nil
	}

	n, err := s.Count(ctx, collection)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of documents in a collection
func (s *MySQLStore) Count(ctx context.Context, collection string) (int, error) {
	if err := ValidateCollection(collection); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM `%s`", collection)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// BulkInsert appends documents in a single transaction
func (s *MySQLStore) BulkInsert(ctx context.Context, collection string, docs []Document) (int, error) {
	if err := ValidateCollection(collection); err != nil {
		return 0, err
	}
	if err := s.ensureTable(ctx, collection); err != nil {
		return 0, err
	}
	return s.withTx(ctx, func(tx *sql.Tx) (int, error) {
		return s.insert(ctx, tx, collection, docs)
	})
}

// ReadAll returns every document in insertion order
func (s *MySQLStore) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT payload, compressed FROM `%s` ORDER BY id", collection))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var payload []byte
		var compressed bool
		if err := rows.Scan(&payload, &compressed); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := decodePayload(payload, compressed)
		if err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	return docs, nil
}

// ReplaceAll deletes the collection contents and inserts docs in one
// transaction, so readers never observe a half-replaced collection.
func (s *MySQLStore) ReplaceAll(ctx context.Context, collection string, docs []Document) (int, error) {
	if err := ValidateCollection(collection); err != nil {
		return 0, err
	}
	if err := s.ensureTable(ctx, collection); err != nil {
		return 0, err
	}
	return s.withTx(ctx, func(tx *sql.Tx) (int, error) {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM `%s`", collection)); err != nil {
			return 0, fmt.Errorf("clear %s: %w", collection, err)
		}
		return s.insert(ctx, tx, collection, docs)
	})
}

// Close closes the connection pool
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) ensureTable(ctx context.Context, collection string) error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, "+
		"doc_id CHAR(36) NOT NULL, "+
		"payload LONGBLOB NOT NULL, "+
		"compressed TINYINT(1) NOT NULL DEFAULT 0, "+
		"created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP, "+
		"UNIQUE KEY uq_doc_id (doc_id))", collection)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", collection, err)
	}
	return nil
}

func (s *MySQLStore) insert(ctx context.Context, tx *sql.Tx, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO `%s` (doc_id, payload, compressed) VALUES (?, ?, ?)", collection))
	if err != nil {
		return 0, fmt.Errorf("prepare insert %s: %w", collection, err)
	}
	defer stmt.Close()

	inserted := 0
	for i, doc := range docs {
		payload, err := s.encodePayload(doc)
		if err != nil {
			return inserted, fmt.Errorf("encode document %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), payload, s.compress); err != nil {
			return inserted, fmt.Errorf("insert document %d into %s: %w", i, collection, err)
		}
		inserted++
	}
	return inserted, nil
}

func (s *MySQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) (int, error)) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	n, err := fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("Rollback failed", slog.String("error", rbErr.Error()))
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return n, nil
}

func (s *MySQLStore) encodePayload(doc Document) ([]byte, error) {
	b, err := json.Marshal(cloneDocument(doc))
	if err != nil {
		return nil, err
	}
	if s.compress {
		return snappy.Encode(nil, b), nil
	}
	return b, nil
}

func decodePayload(payload []byte, compressed bool) (Document, error) {
	if compressed {
		b, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("snappy decode: %w", err)
		}
		payload = b
	}

	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	delete(doc, IDField)
	return doc, nil
}
