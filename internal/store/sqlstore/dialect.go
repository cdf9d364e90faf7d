package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name       string
	DriverName string
	Schema     string
	// Numbered is true when placeholders are $1, $2, ... instead of ?.
	Numbered bool
}

var (
	Postgres = Dialect{
		Name:       "postgres",
		DriverName: "postgres",
		Numbered:   true,
		Schema: `
CREATE TABLE IF NOT EXISTS conversation_turns (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS conversation_turns_user_idx ON conversation_turns (user_id, seq);

CREATE TABLE IF NOT EXISTS hs_overrides (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	user_id    TEXT NOT NULL,
	keyword    TEXT NOT NULL,
	correct_hs TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS hs_overrides_keyword_idx ON hs_overrides (keyword, created_at);

CREATE TABLE IF NOT EXISTS webhook_events (
	event_id TEXT PRIMARY KEY,
	seen_at  TIMESTAMPTZ NOT NULL
);`,
	}

	SQLite = Dialect{
		Name:       "sqlite",
		DriverName: "sqlite3",
		Schema: `
CREATE TABLE IF NOT EXISTS conversation_turns (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS conversation_turns_user_idx ON conversation_turns (user_id, seq);

CREATE TABLE IF NOT EXISTS hs_overrides (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	user_id    TEXT NOT NULL,
	keyword    TEXT NOT NULL,
	correct_hs TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS hs_overrides_keyword_idx ON hs_overrides (keyword, created_at);

CREATE TABLE IF NOT EXISTS webhook_events (
	event_id TEXT PRIMARY KEY,
	seen_at  TIMESTAMP NOT NULL
);`,
	}
)

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, bool) {
	switch driver {
	case "postgres", "postgresql":
		return Postgres, true
	case "sqlite", "sqlite3":
		return SQLite, true
	}
	return Dialect{}, false
}

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
