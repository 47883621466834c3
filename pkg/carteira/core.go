package carteira

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entitlements answers whether the current user may see premium crossing data.
// The subscription/billing machinery lives outside this core.
type Entitlements interface {
	FullAccess() bool
}

type fullAccess struct{}

func (fullAccess) FullAccess() bool { return true }

// Options controls Core initialization.
type Options struct {
	DBPath       string
	Logger       *slog.Logger
	Now          func() time.Time
	Entitlements Entitlements
}

// Core provides access to carteira business logic and storage.
type Core struct {
	db           *sql.DB
	logger       *slog.Logger
	now          func() time.Time
	entitlements Entitlements
	dbPath       string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = NowInSaoPaulo
	}
	entitlements := opts.Entitlements
	if entitlements == nil {
		entitlements = fullAccess{}
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer; this also gives every
	// read-modify-write of a position exclusive access for the duration of
	// its transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logger.Warn("pragma foreign_keys failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	return &Core{
		db:           db,
		logger:       logger,
		now:          now,
		entitlements: entitlements,
		dbPath:       cleanPath,
	}, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Logger returns the configured logger.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}
