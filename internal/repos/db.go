package repos

import (
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// OpenDB opens SQLite for plain file paths and ":memory:", PostgreSQL (via pgx)
// for postgres:// URLs, then makes sure the schema exists.
func OpenDB(dsn string) (*sqlx.DB, error) {
	driver := "sqlite"
	if isPostgres(dsn) {
		driver = "pgx"
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one connection: keeps ":memory:" databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func ensureSchema(db *sqlx.DB) error {
	if db.DriverName() == "sqlite" {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
			return err
		}
	}
	schema := `
-- Auctions
CREATE TABLE IF NOT EXISTS auctions(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  start_at TIMESTAMP NOT NULL,
  end_at TIMESTAMP NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft','scheduled')),
  buyer_premium_pct DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (buyer_premium_pct >= 0),
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_auctions_slug ON auctions(slug);
CREATE INDEX IF NOT EXISTS idx_auctions_start_at ON auctions(start_at);

-- Catalogues
CREATE TABLE IF NOT EXISTS catalogues(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  cover_image TEXT NOT NULL DEFAULT '',
  auction_date TIMESTAMP NULL,
  location TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'draft',
  total_lots INTEGER NOT NULL DEFAULT 0,
  estimated_value DOUBLE PRECISION NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);

-- Lots
CREATE TABLE IF NOT EXISTS lots(
  id TEXT PRIMARY KEY,
  scope_key TEXT NULL,
  lot_number TEXT NOT NULL,
  title TEXT NOT NULL,
  subtitle TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  description_text TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  condition TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 0),
  sequence INTEGER NOT NULL DEFAULT 0,
  estimate_low DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (estimate_low >= 0),
  estimate_high DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (estimate_high >= 0),
  starting_bid DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (starting_bid >= 0),
  reserve_price DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (reserve_price >= 0),
  estimated_value DOUBLE PRECISION NOT NULL DEFAULT 0,
  starting_price DOUBLE PRECISION NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'draft',
  featured BOOLEAN NOT NULL DEFAULT FALSE,
  requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
  approval_status TEXT NOT NULL DEFAULT 'approved',
  approval_notes TEXT NOT NULL DEFAULT '',
  images_json TEXT NOT NULL DEFAULT '[]',
  documents_json TEXT NOT NULL DEFAULT '[]',
  catalogue_id TEXT NULL REFERENCES catalogues(id) ON DELETE RESTRICT,
  auction_id TEXT NULL REFERENCES auctions(id) ON DELETE RESTRICT,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
-- lotNumber is unique per auction/catalogue scope; NULL scope means unscoped
CREATE UNIQUE INDEX IF NOT EXISTS idx_lots_scope_number ON lots(scope_key, lot_number);
CREATE INDEX IF NOT EXISTS idx_lots_catalogue ON lots(catalogue_id);
CREATE INDEX IF NOT EXISTS idx_lots_auction   ON lots(auction_id);
CREATE INDEX IF NOT EXISTS idx_lots_status    ON lots(status);
CREATE INDEX IF NOT EXISTS idx_lots_category  ON lots(category);

-- Ordered lot references of a catalogue
CREATE TABLE IF NOT EXISTS catalogue_lots(
  catalogue_id TEXT NOT NULL REFERENCES catalogues(id) ON DELETE CASCADE,
  lot_id TEXT NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  PRIMARY KEY (catalogue_id, lot_id)
);

-- Append-only audit trail
CREATE TABLE IF NOT EXISTS event_logs(
  id TEXT PRIMARY KEY,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  action TEXT NOT NULL,
  previous_json TEXT NOT NULL DEFAULT '{}',
  changes_json TEXT NOT NULL DEFAULT '{}',
  actor TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_logs_entity ON event_logs(entity_type, entity_id);

-- Users
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN'))
);
`
	_, err := db.Exec(schema)
	return err
}

// nullable stores empty references as NULL so they stay out of unique indexes
// and foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
