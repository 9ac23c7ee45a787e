package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// order_groups must be created BEFORE the tables that reference it.
const schema = `
CREATE TABLE IF NOT EXISTS order_groups (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    orderer_id TEXT,
    provider_id TEXT,
    total_amount TEXT NOT NULL DEFAULT '0',
    settled INTEGER NOT NULL DEFAULT 0,
    cycle INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL,
    last_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS order_participants (
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES order_groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS order_user_status (
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    ordered INTEGER NOT NULL DEFAULT 0,
    paid INTEGER NOT NULL DEFAULT 0,
    received INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES order_groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS order_history (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    cycle INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    snapshot TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES order_groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS wallets (
    user_id TEXT PRIMARY KEY,
    balance TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    settlement_key TEXT NOT NULL,
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    amount TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (settlement_key, user_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_order_participants_group_id ON order_participants(group_id);
CREATE INDEX IF NOT EXISTS idx_order_user_status_group_id ON order_user_status(group_id);
CREATE INDEX IF NOT EXISTS idx_order_history_group_id ON order_history(group_id);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_id ON ledger_entries(user_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
