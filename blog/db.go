// blog/db.go
package blog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	ConnectionString string
	MaxConnections   int32
	ConnectTimeout   time.Duration
	// Location is the site time zone used for publish-date lookups.
	Location *time.Location
}

type Database struct {
	pool   *pgxpool.Pool
	config DatabaseConfig
}

func NewDatabase(ctx context.Context, config DatabaseConfig) (*Database, error) {
	if config.ConnectionString == "" {
		return nil, errors.New("connection string is required")
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	if config.Location == nil {
		config.Location = time.UTC
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = config.MaxConnections
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	timeoutCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(timeoutCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{pool: pool, config: config}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *Database) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// Migrate applies (up) or reverts (down) the embedded schema migrations.
func (d *Database) Migrate(direction string) error {
	return RunMigrations(d.config.ConnectionString, direction)
}

// RunMigrations runs the embedded migrations against connString.
func RunMigrations(connString, direction string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	switch direction {
	case "", "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

const postColumns = `p.id, p.title, p.slug, p.author_id::text, a.username, p.body,
       p.publish, p.created, p.updated, p.status, p.scheduled`

const postFrom = ` FROM blog_posts p JOIN blog_authors a ON a.id = p.author_id`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPost reads postColumns followed by extra. Publish comes back in the
// site time zone so AbsoluteURL matches the detail route.
func (d *Database) scanPost(row rowScanner, extra ...any) (Post, error) {
	var p Post
	var status string
	dest := []any{&p.ID, &p.Title, &p.Slug, &p.AuthorID, &p.Author, &p.Body,
		&p.Publish, &p.Created, &p.Updated, &status, &p.Scheduled}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return p, err
	}
	p.Status = Status(status)
	p.Publish = p.Publish.In(d.config.Location)
	return p, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// --- Post Functions ---

func postWhere(f PostFilter, args []any) (string, []any) {
	var conds []string
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if f.TagID != 0 {
		args = append(args, f.TagID)
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM blog_post_tags pt WHERE pt.post_id = p.id AND pt.tag_id = $%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (d *Database) ListPosts(ctx context.Context, f PostFilter, limit, offset int) ([]Post, error) {
	where, args := postWhere(f, nil)
	query := "SELECT " + postColumns + postFrom + where + " ORDER BY p.publish DESC, p.id DESC LIMIT $%d OFFSET $%d"
	query = fmt.Sprintf(query, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		p, err := d.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, d.loadTags(ctx, posts)
}

func (d *Database) CountPosts(ctx context.Context, f PostFilter) (int, error) {
	where, args := postWhere(f, nil)
	var count int
	err := d.pool.QueryRow(ctx, "SELECT COUNT(*) FROM blog_posts p"+where, args...).Scan(&count)
	return count, err
}

func (d *Database) GetPost(ctx context.Context, id int64, status Status) (*Post, error) {
	where, args := postWhere(PostFilter{Status: status}, []any{id})
	if where == "" {
		where = " WHERE p.id = $1"
	} else {
		where += " AND p.id = $1"
	}
	p, err := d.scanPost(d.pool.QueryRow(ctx, "SELECT "+postColumns+postFrom+where, args...))
	if err != nil {
		return nil, notFound(err)
	}
	posts := []Post{p}
	if err := d.loadTags(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (d *Database) GetPostByDate(ctx context.Context, slug string, dayStart, dayEnd time.Time, status Status) (*Post, error) {
	where, args := postWhere(PostFilter{Status: status}, []any{slug, dayStart, dayEnd})
	cond := "p.slug = $1 AND p.publish >= $2 AND p.publish < $3"
	if where == "" {
		where = " WHERE " + cond
	} else {
		where += " AND " + cond
	}
	query := "SELECT " + postColumns + postFrom + where + " ORDER BY p.publish DESC LIMIT 1"
	p, err := d.scanPost(d.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	posts := []Post{p}
	if err := d.loadTags(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// loadTags fills Tags on every post with one query.
func (d *Database) loadTags(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	index := make(map[int64][]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		index[p.ID] = append(index[p.ID], i)
	}
	query := `SELECT pt.post_id, t.id, t.name, t.slug FROM blog_post_tags pt
              JOIN blog_tags t ON t.id = pt.tag_id
              WHERE pt.post_id = ANY($1)
              ORDER BY t.name`
	rows, err := d.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var postID int64
		var t Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug); err != nil {
			return err
		}
		for _, i := range index[postID] {
			posts[i].Tags = append(posts[i].Tags, t)
		}
	}
	return rows.Err()
}

func (d *Database) SearchPosts(ctx context.Context, query string, status Status, minSimilarity float64) ([]SearchResult, error) {
	q := `SELECT ` + postColumns + `,
              similarity(p.title, $1) AS similarity,
              ts_rank(
                  setweight(to_tsvector(coalesce(p.title, '')), 'A') ||
                  setweight(to_tsvector(coalesce(p.body, '')), 'B'),
                  plainto_tsquery($1)
              ) AS rank` + postFrom + `
          WHERE p.status = $2 AND similarity(p.title, $1) > $3
          ORDER BY similarity DESC, p.publish DESC`
	rows, err := d.pool.Query(ctx, q, query, string(status), minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var sim, rank float64
		p, err := d.scanPost(rows, &sim, &rank)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Post: p, Similarity: sim, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	posts := make([]Post, len(results))
	for i := range results {
		posts[i] = results[i].Post
	}
	if err := d.loadTags(ctx, posts); err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Post = posts[i]
	}
	return results, nil
}

func (d *Database) PostsSharingTags(ctx context.Context, tagIDs []int64, excludeID int64, status Status, limit int) ([]RelatedPost, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	q := `SELECT ` + postColumns + `, COUNT(pt.tag_id) AS same_tags` + postFrom + `
          JOIN blog_post_tags pt ON pt.post_id = p.id
          WHERE pt.tag_id = ANY($1) AND p.id <> $2 AND p.status = $3
          GROUP BY p.id, a.username
          ORDER BY same_tags DESC, p.publish DESC
          LIMIT $4`
	rows, err := d.pool.Query(ctx, q, tagIDs, excludeID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("similar posts query: %w", err)
	}
	defer rows.Close()

	var related []RelatedPost
	for rows.Next() {
		var same int
		p, err := d.scanPost(rows, &same)
		if err != nil {
			return nil, err
		}
		related = append(related, RelatedPost{Post: p, SameTags: same})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	posts := make([]Post, len(related))
	for i := range related {
		posts[i] = related[i].Post
	}
	if err := d.loadTags(ctx, posts); err != nil {
		return nil, err
	}
	for i := range related {
		related[i].Post = posts[i]
	}
	return related, nil
}

func (d *Database) CreatePost(ctx context.Context, p *Post, tagNames []string) error {
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Publish.IsZero() {
		p.Publish = time.Now()
	}
	p.Publish = p.Publish.In(d.config.Location)
	dayStart, dayEnd := DayBounds(p.Publish, d.config.Location)

	names := make([]string, 0, len(tagNames))
	slugs := make([]string, 0, len(tagNames))
	for _, raw := range tagNames {
		name, slug, err := tagFields(raw)
		if err != nil {
			return err
		}
		names = append(names, name)
		slugs = append(slugs, slug)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Serializes creators of the same slug until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, p.Slug); err != nil {
		return fmt.Errorf("lock slug: %w", err)
	}

	var taken bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blog_posts WHERE slug = $1 AND publish >= $2 AND publish < $3)`,
		p.Slug, dayStart, dayEnd).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateSlug
	}

	query := `INSERT INTO blog_posts (title, slug, author_id, body, publish, status, scheduled)
              VALUES ($1, $2, $3::uuid, $4, $5, $6, $7) RETURNING id, created, updated`
	err = tx.QueryRow(ctx, query, p.Title, p.Slug, p.AuthorID, p.Body, p.Publish, string(p.Status), p.Scheduled).
		Scan(&p.ID, &p.Created, &p.Updated)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	p.Tags = p.Tags[:0]
	seen := make(map[int64]bool, len(names))
	for i, name := range names {
		t, err := upsertTag(ctx, tx, name, slugs[i])
		if err != nil {
			return err
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		if _, err := tx.Exec(ctx,
			`INSERT INTO blog_post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.ID, t.ID); err != nil {
			return err
		}
		p.Tags = append(p.Tags, *t)
	}
	return tx.Commit(ctx)
}

func upsertTag(ctx context.Context, tx pgx.Tx, name, slug string) (*Tag, error) {
	var t Tag
	err := tx.QueryRow(ctx,
		`SELECT id, name, slug FROM blog_tags WHERE name = $1 OR slug = $2 ORDER BY (name = $1) DESC LIMIT 1`,
		name, slug).Scan(&t.ID, &t.Name, &t.Slug)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO blog_tags (name, slug) VALUES ($1, $2) RETURNING id, name, slug`,
		name, slug).Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		return nil, fmt.Errorf("insert tag %q: %w", name, err)
	}
	return &t, nil
}

func (d *Database) PublishPost(ctx context.Context, id int64) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE blog_posts SET status = 'PB', scheduled = FALSE, updated = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) DeletePost(ctx context.Context, id int64) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) DueScheduledPosts(ctx context.Context, now time.Time) ([]Post, error) {
	query := "SELECT " + postColumns + postFrom +
		" WHERE p.status = 'DF' AND p.scheduled AND p.publish <= $1 ORDER BY p.publish ASC"
	rows, err := d.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		p, err := d.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// --- Tag Functions ---

func (d *Database) GetTagBySlug(ctx context.Context, slug string) (*Tag, error) {
	var t Tag
	err := d.pool.QueryRow(ctx, `SELECT id, name, slug FROM blog_tags WHERE slug = $1`, slug).
		Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (d *Database) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, name, slug FROM blog_tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// --- Comment Functions ---

func (d *Database) ListComments(ctx context.Context, postID int64, activeOnly bool) ([]Comment, error) {
	query := `SELECT id, post_id, name, email, body, created, updated, active FROM blog_comments
              WHERE post_id = $1`
	if activeOnly {
		query += " AND active"
	}
	query += " ORDER BY created ASC, id ASC"
	rows, err := d.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Name, &c.Email, &c.Body, &c.Created, &c.Updated, &c.Active); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (d *Database) CreateComment(ctx context.Context, c *Comment) error {
	query := `INSERT INTO blog_comments (post_id, name, email, body, active)
              VALUES ($1, $2, $3, $4, $5) RETURNING id, created, updated`
	err := d.pool.QueryRow(ctx, query, c.PostID, c.Name, c.Email, c.Body, c.Active).
		Scan(&c.ID, &c.Created, &c.Updated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (d *Database) SetCommentActive(ctx context.Context, id int64, active bool) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE blog_comments SET active = $2, updated = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Author Functions ---

func (d *Database) CreateAuthor(ctx context.Context, a *Author) error {
	query := `INSERT INTO blog_authors (id, username, email, hash, created, updated)
              VALUES ($1::uuid, $2, $3, $4, $5, $6)`
	_, err := d.pool.Exec(ctx, query, a.ID, a.Username, a.Email, a.Hash, a.Created, a.Updated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (d *Database) GetAuthorByUsername(ctx context.Context, username string) (*Author, error) {
	var a Author
	query := `SELECT id::text, username, email, hash, created, updated FROM blog_authors WHERE username = $1`
	err := d.pool.QueryRow(ctx, query, username).
		Scan(&a.ID, &a.Username, &a.Email, &a.Hash, &a.Created, &a.Updated)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
