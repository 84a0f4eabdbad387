package recipeapi

// Schema is the recipe table. Ingredients are kept as the JSON array sent
// on the wire; keywords holds the title and ingredient descriptions that
// search matches against. An empty key marks a public recipe.
const Schema = `
CREATE TABLE IF NOT EXISTS recipes (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	publisher    TEXT NOT NULL DEFAULT '',
	source_url   TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	servings     INTEGER NOT NULL,
	cooking_time INTEGER NOT NULL DEFAULT 0,
	ingredients  TEXT NOT NULL DEFAULT '[]',
	keywords     TEXT NOT NULL DEFAULT '',
	key          TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recipes_key ON recipes(key, created_at);
`
