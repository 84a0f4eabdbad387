package bookmarkdb

// Schema is the key/value table. Bookmarks live in a single row.
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// BookmarksKey is the row holding the bookmark list as a JSON array.
const BookmarksKey = "bookmarks"
