package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaSubjects = `
CREATE TABLE IF NOT EXISTS subjects (
    id TEXT PRIMARY KEY,
    national_id TEXT NOT NULL,
    name TEXT NOT NULL,
    address TEXT NOT NULL,
    district TEXT NOT NULL,
    state TEXT NOT NULL,
    phone TEXT,
    family_size INTEGER NOT NULL DEFAULT 1,
    declared_income REAL NOT NULL DEFAULT 0,
    card_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    verification TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_subjects_national_id ON subjects(national_id);
CREATE INDEX IF NOT EXISTS idx_subjects_address ON subjects(address);
CREATE INDEX IF NOT EXISTS idx_subjects_status ON subjects(status);
CREATE INDEX IF NOT EXISTS idx_subjects_district ON subjects(district);
`

const schemaCards = `
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    number TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    issued_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_subject ON cards(subject_id);
CREATE INDEX IF NOT EXISTS idx_cards_status ON cards(subject_id, status);
`

const schemaShops = `
CREATE TABLE IF NOT EXISTS shops (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    district TEXT NOT NULL,
    state TEXT NOT NULL,
    owner TEXT
);

CREATE INDEX IF NOT EXISTS idx_shops_district ON shops(district);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL,
    card_number TEXT NOT NULL,
    shop_id TEXT NOT NULL,
    items TEXT NOT NULL,
    total_amount REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_subject ON transactions(subject_id);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(subject_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_shop ON transactions(shop_id);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL,
    fraud_type TEXT NOT NULL,
    confidence REAL NOT NULL,
    message TEXT,
    details TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL,
    resolved_at TIMESTAMP,
    resolved_by TEXT
);

CREATE INDEX IF NOT EXISTS idx_alerts_subject ON alerts(subject_id);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
CREATE INDEX IF NOT EXISTS idx_alerts_dedup ON alerts(subject_id, fraud_type, status);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 0.5,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_enabled ON rule_configs(enabled);
`

const schemaAdmins = `
CREATE TABLE IF NOT EXISTS admins (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'admin',
    created_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaSubjects,
		schemaCards,
		schemaShops,
		schemaTransactions,
		schemaAlerts,
		schemaRuleConfigs,
		schemaAdmins,
	}
}
