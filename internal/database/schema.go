package database

// Schema contains all SQL statements for creating tables and indexes.
//
// Each entity kind gets one table with the same shape: a store-assigned
// handle, the client-facing public ID, the (non-unique) name, and the full
// record as a JSON document. public_id and name are extracted for querying;
// everything else lives in the document.
const Schema = `
-- Tracks: routes that users run or bike
CREATE TABLE IF NOT EXISTS tracks (
    handle TEXT PRIMARY KEY,
    public_id INTEGER NOT NULL UNIQUE,
    name TEXT NOT NULL,
    doc TEXT NOT NULL,

    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Users: string public IDs, unlike the other kinds
CREATE TABLE IF NOT EXISTS users (
    handle TEXT PRIMARY KEY,
    public_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    doc TEXT NOT NULL,

    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    handle TEXT PRIMARY KEY,
    public_id INTEGER NOT NULL UNIQUE,
    name TEXT NOT NULL,
    doc TEXT NOT NULL,

    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS challenges (
    handle TEXT PRIMARY KEY,
    public_id INTEGER NOT NULL UNIQUE,
    name TEXT NOT NULL,
    doc TEXT NOT NULL,

    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Name lookups are exact-match and non-unique
CREATE INDEX IF NOT EXISTS idx_tracks_name ON tracks(name);
CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
CREATE INDEX IF NOT EXISTS idx_groups_name ON groups(name);
CREATE INDEX IF NOT EXISTS idx_challenges_name ON challenges(name);
`
