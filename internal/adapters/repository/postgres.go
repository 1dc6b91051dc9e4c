package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/cinematch/internal/domain/model"
	"github.com/okian/cinematch/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL applied by Migrate.
func Schema() string { return schemaSQL }

// PostgresStore implements Store on PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		pool:   pool,
		logger: logger.Get().Named("postgres-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info(ctx, "schema applied")
	return nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveRatings replaces the user's ratings and clears the ready flag.
func (s *PostgresStore) SaveRatings(ctx context.Context, userID int64, ratings []model.Rating) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, recommendations_ready) VALUES ($1, FALSE)
			 ON CONFLICT (id) DO UPDATE SET recommendations_ready = FALSE`, userID,
		); err != nil {
			return fmt.Errorf("upsert user %d: %w", userID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM ratings WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete ratings for user %d: %w", userID, err)
		}

		batch := &pgx.Batch{}
		for _, r := range ratings {
			batch.Queue(
				`INSERT INTO ratings (user_id, movie_id, value) VALUES ($1, $2, $3)
				 ON CONFLICT (user_id, movie_id) DO UPDATE SET value = EXCLUDED.value`,
				userID, r.ItemID, r.Value,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert ratings for user %d: %w", userID, err)
		}
		return nil
	})
}

// RatingsOf returns the user's ratings ordered by item id.
func (s *PostgresStore) RatingsOf(ctx context.Context, userID int64) ([]model.Rating, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT movie_id, value FROM ratings WHERE user_id = $1 ORDER BY movie_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ratings for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.ItemID, &r.Value); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over ratings: %w", err)
	}
	return out, nil
}

// UsersWhoRated returns every user with a rating for any of itemIDs.
func (s *PostgresStore) UsersWhoRated(ctx context.Context, itemIDs []int64) ([]int64, error) {
	return s.queryIDs(ctx,
		`SELECT DISTINCT user_id FROM ratings WHERE movie_id = ANY($1) ORDER BY user_id`, itemIDs)
}

// IsReady reports the user's ready flag.
func (s *PostgresStore) IsReady(ctx context.Context, userID int64) (bool, error) {
	var ready bool
	err := s.pool.QueryRow(ctx,
		`SELECT recommendations_ready FROM users WHERE id = $1`, userID,
	).Scan(&ready)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("query ready flag for user %d: %w", userID, err)
	}
	return ready, nil
}

// InvalidateRecommendations clears the ready flag and drops the rows.
func (s *PostgresStore) InvalidateRecommendations(ctx context.Context, userID int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := setReady(ctx, tx, userID, false); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM recommendations WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete recommendations for user %d: %w", userID, err)
		}
		return nil
	})
}

// ReplaceRecommendations swaps in recs and sets the ready flag.
func (s *PostgresStore) ReplaceRecommendations(ctx context.Context, userID int64, recs []model.ScoredItem) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM recommendations WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete recommendations for user %d: %w", userID, err)
		}
		if len(recs) > 0 {
			_, err := tx.CopyFrom(ctx,
				pgx.Identifier{"recommendations"},
				[]string{"user_id", "movie_id", "score"},
				pgx.CopyFromSlice(len(recs), func(i int) ([]any, error) {
					return []any{userID, recs[i].ItemID, recs[i].Score}, nil
				}),
			)
			if err != nil {
				return fmt.Errorf("insert recommendations for user %d: %w", userID, err)
			}
		}
		return setReady(ctx, tx, userID, true)
	})
}

// Recommendations returns the persisted rows by score descending.
func (s *PostgresStore) Recommendations(ctx context.Context, userID int64) ([]model.Recommendation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT movie_id, score FROM recommendations WHERE user_id = $1
		 ORDER BY score DESC, movie_id ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query recommendations for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Recommendation
	for rows.Next() {
		rec := model.Recommendation{UserID: userID}
		if err := rows.Scan(&rec.ItemID, &rec.Score); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over recommendations: %w", err)
	}
	return out, nil
}

// Items returns the metadata of the known ids.
func (s *PostgresStore) Items(ctx context.Context, ids []int64) (map[int64]model.Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, COALESCE(year, 0), genres, tags, imdb_id FROM movies WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]model.Item, len(ids))
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Year, &it.Genres, &it.Tags, &it.IMDbID); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		it.IMDbLink = model.IMDbLink(it.IMDbID)
		out[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over movies: %w", err)
	}
	return out, nil
}

// UnknownItems returns the ids missing from the catalogue, in input order.
func (s *PostgresStore) UnknownItems(ctx context.Context, ids []int64) ([]int64, error) {
	found, err := s.queryIDs(ctx, `SELECT id FROM movies WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Genres returns every distinct genre label, sorted.
func (s *PostgresStore) Genres(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT unnest(genres) AS g FROM movies ORDER BY g`)
	if err != nil {
		return nil, fmt.Errorf("query genres: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect genres: %w", err)
	}
	return out, nil
}

// DirectorOf returns the item's first director.
func (s *PostgresStore) DirectorOf(ctx context.Context, itemID int64) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT director_id FROM movie_directors WHERE movie_id = $1 ORDER BY director_id LIMIT 1`, itemID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query director of movie %d: %w", itemID, err)
	}
	return id, true, nil
}

// ActorsOf returns the item's credited actors.
func (s *PostgresStore) ActorsOf(ctx context.Context, itemID int64) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT actor_id FROM movie_actors WHERE movie_id = $1 ORDER BY actor_id`, itemID)
}

// ItemsOfDirector returns the items directed by directorID.
func (s *PostgresStore) ItemsOfDirector(ctx context.Context, directorID int64) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT movie_id FROM movie_directors WHERE director_id = $1 ORDER BY movie_id`, directorID)
}

// ItemsOfActor returns the items featuring actorID.
func (s *PostgresStore) ItemsOfActor(ctx context.Context, actorID int64) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT movie_id FROM movie_actors WHERE actor_id = $1 ORDER BY movie_id`, actorID)
}

// Seed upserts a catalogue's items, credits and historical ratings.
func (s *PostgresStore) Seed(ctx context.Context, c *Catalog) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, it := range c.Items {
			batch.Queue(
				`INSERT INTO movies (id, title, year, genres, tags, imdb_id)
				 VALUES ($1, $2, NULLIF($3, 0), $4, COALESCE($5::text[], '{}'), $6)
				 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, year = EXCLUDED.year,
				   genres = EXCLUDED.genres, tags = EXCLUDED.tags, imdb_id = EXCLUDED.imdb_id`,
				it.ID, it.Title, it.Year, it.Genres, it.Tags, it.IMDbID,
			)
			if it.DirectorID != 0 {
				batch.Queue(`INSERT INTO movie_directors (movie_id, director_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					it.ID, it.DirectorID)
			}
			for _, a := range it.ActorIDs {
				batch.Queue(`INSERT INTO movie_actors (movie_id, actor_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					it.ID, a)
			}
		}
		for _, r := range c.Ratings {
			batch.Queue(`INSERT INTO users (id) VALUES ($1) ON CONFLICT DO NOTHING`, r.UserID)
			batch.Queue(
				`INSERT INTO ratings (user_id, movie_id, value) VALUES ($1, $2, $3)
				 ON CONFLICT (user_id, movie_id) DO UPDATE SET value = EXCLUDED.value`,
				r.UserID, r.ItemID, r.Value,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ensureUser(ctx context.Context, userID int64) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("query user %d: %w", userID, err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) queryIDs(ctx context.Context, sql string, args ...any) ([]int64, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect ids: %w", err)
	}
	return ids, nil
}

func setReady(ctx context.Context, tx pgx.Tx, userID int64, ready bool) error {
	tag, err := tx.Exec(ctx, `UPDATE users SET recommendations_ready = $2 WHERE id = $1`, userID, ready)
	if err != nil {
		return fmt.Errorf("set ready flag for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
