package delivery

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/arpitjain2323/buddyguard/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

const defaultDirPerm = 0o755

// Spool is the dead-letter store: every item the client gives up on
// (evicted, rejected, unauthorized, pending at shutdown) lands here so
// nothing is dropped silently.
type Spool interface {
	Store(item Item, reason string) error
	Count() (int, error)
	Close() error
}

type sqliteSpool struct {
	db *sql.DB
	mu sync.Mutex
}

// noopSpool is used when no spool path is configured
type noopSpool struct{}

func NewSpool(path string) (Spool, error) {
	errFactory := errors.New()

	if path == "" {
		logger.Debug().Msg("No spool path configured, dropped items are log-only")
		return &noopSpool{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrSpoolInit, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL")
	if err != nil {
		return nil, errFactory.Wrap(ErrSpoolInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrSpoolInit, err)
	}

	logger.Debug().Str("path", path).Msg("Delivery spool initialized")

	return &sqliteSpool{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS dead_letter (
            id TEXT PRIMARY KEY,
            device_id TEXT NOT NULL,
            type TEXT NOT NULL,
            event_time INTEGER NOT NULL,
            reason TEXT NOT NULL,
            payload BLOB,
            spooled_at INTEGER NOT NULL
        )
    `)
	return err
}

func (s *sqliteSpool) Store(item Item, reason string) error {
	errFactory := errors.New()

	payload, err := json.Marshal(item.Payload)
	if err != nil {
		payload = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
        INSERT INTO dead_letter (id, device_id, type, event_time, reason, payload, spooled_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET reason = excluded.reason, spooled_at = excluded.spooled_at
    `,
		item.ID,
		item.DeviceID,
		string(item.Type),
		item.Timestamp.Unix(),
		reason,
		payload,
		time.Now().Unix(),
	)
	if err != nil {
		return errFactory.Wrap(ErrSpoolAccess, err)
	}

	return nil
}

func (s *sqliteSpool) Count() (int, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dead_letter`).Scan(&count); err != nil {
		return 0, errFactory.Wrap(ErrSpoolAccess, err)
	}
	return count, nil
}

func (s *sqliteSpool) Close() error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return errFactory.Wrap(ErrSpoolClose, err)
	}
	return nil
}

func (*noopSpool) Store(_ Item, _ string) error { return nil }
func (*noopSpool) Count() (int, error)          { return 0, nil }
func (*noopSpool) Close() error                 { return nil }
