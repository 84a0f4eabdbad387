package recipeapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/forkify/dbopen"
	"github.com/hazyhaar/forkify/forkifyapi"
	"github.com/hazyhaar/forkify/idgen"
)

// Store is the recipe database.
type Store struct {
	DB    *sql.DB
	newID idgen.Generator
	now   func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator sets the generator of recipe ids. Default: idgen.ObjectID().
func WithIDGenerator(g idgen.Generator) StoreOption {
	return func(s *Store) { s.newID = g }
}

// Open opens (or creates) the recipe database at path and applies Schema.
func Open(path string, opts ...StoreOption) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("recipeapi: open %s: %w", path, err)
	}
	return NewStore(db, opts...), nil
}

// NewStore wraps an open database that already carries Schema.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{DB: db, newID: idgen.ObjectID(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

const recipeColumns = `id, title, publisher, source_url, image_url, servings, cooking_time, ingredients, key, created_at`

// Get returns recipe id, or nil if there is none visible with key. Recipes
// uploaded with a key are only visible with that key.
func (s *Store) Get(ctx context.Context, id, key string) (*forkifyapi.Recipe, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = ? AND (key = '' OR key = ?)`, id, key)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recipeapi: get %s: %w", id, err)
	}
	return r, nil
}

// Search returns the recipes whose title or an ingredient description
// contains query, case-insensitively, oldest first.
func (s *Store) Search(ctx context.Context, query, key string) ([]forkifyapi.Result, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, title, publisher, image_url, key FROM recipes
		WHERE (key = '' OR key = ?)
		  AND keywords LIKE ? ESCAPE '\'
		ORDER BY created_at, id`, key, pattern)
	if err != nil {
		return nil, fmt.Errorf("recipeapi: search %q: %w", query, err)
	}
	defer rows.Close()

	out := []forkifyapi.Result{}
	for rows.Next() {
		var r forkifyapi.Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Publisher, &r.ImageURL, &r.Key); err != nil {
			return nil, fmt.Errorf("recipeapi: search %q: %w", query, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Create stores r under a fresh id and returns it as stored. The caller
// sets r.Key.
func (s *Store) Create(ctx context.Context, r *forkifyapi.Recipe) (*forkifyapi.Recipe, error) {
	c := *r
	c.ID = s.newID()
	now := s.now()
	c.CreatedAt = now.UTC().Format(time.RFC3339)
	if c.Ingredients == nil {
		c.Ingredients = []forkifyapi.Ingredient{}
	}

	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := insertRecipe(ctx, tx, &c, now, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recipeapi: create %q: %w", r.Title, err)
	}
	return &c, nil
}

// Seed inserts recipes that are not stored yet, keyed by id, and returns the
// number inserted. Recipes without an id get one.
func (s *Store) Seed(ctx context.Context, recipes []forkifyapi.Recipe) (int, error) {
	var inserted int
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		inserted = 0
		now := s.now()
		for i := range recipes {
			r := recipes[i]
			if r.ID == "" {
				r.ID = s.newID()
			}
			if r.Ingredients == nil {
				r.Ingredients = []forkifyapi.Ingredient{}
			}
			// Offset created_at so the fixture order is kept.
			n, err := insertRecipe(ctx, tx, &r, now.Add(time.Duration(i)*time.Millisecond), true)
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("recipeapi: seed: %w", err)
	}
	return inserted, nil
}

// Count returns the number of stored recipes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("recipeapi: count: %w", err)
	}
	return n, nil
}

func insertRecipe(ctx context.Context, tx *sql.Tx, r *forkifyapi.Recipe, at time.Time, ignoreExisting bool) (int64, error) {
	ings, err := json.Marshal(r.Ingredients)
	if err != nil {
		return 0, err
	}
	verb := "INSERT"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}
	res, err := tx.ExecContext(ctx, verb+` INTO recipes (`+recipeColumns+`, keywords) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Title, r.Publisher, r.SourceURL, r.ImageURL, r.Servings, r.CookingTime,
		string(ings), r.Key, at.UnixMilli(), keywords(r))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRecipe(row *sql.Row) (*forkifyapi.Recipe, error) {
	r := &forkifyapi.Recipe{}
	var ings string
	var created int64
	if err := row.Scan(&r.ID, &r.Title, &r.Publisher, &r.SourceURL, &r.ImageURL,
		&r.Servings, &r.CookingTime, &ings, &r.Key, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ings), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("ingredients: %w", err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC().Format(time.RFC3339)
	return r, nil
}

func keywords(r *forkifyapi.Recipe) string {
	parts := []string{r.Title}
	for _, ing := range r.Ingredients {
		parts = append(parts, ing.Description)
	}
	return strings.Join(parts, "\n")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
