package studyblog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist, or when an
// owner-scoped write matched zero rows.
var ErrNotFound = sql.ErrNoRows

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps a SQLite database and provides row CRUD for posts, subjects,
// users, and the site settings singleton. All post writes that can be
// triggered by a user carry an owner-equality filter.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, busy timeout so writers wait
	// instead of returning SQLITE_BUSY, synchronous=NORMAL is safe with WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const postColumns = `p.id, p.title, p.content, p.published, p.created_at, p.updated_at,
	p.user_id, p.subject_id, p.image_url,
	s.id, s.name, s.slug, s.created_at`

const postFrom = ` FROM posts p LEFT JOIN subjects s ON s.id = p.subject_id`

// Timestamps are stored as integer Unix nanoseconds so that ordering in SQL
// matches chronological order exactly.
func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var p Post
	var published int
	var created, updated int64
	var subID, subName, subSlug sql.NullString
	var subCreated sql.NullInt64
	err := row.Scan(&p.ID, &p.Title, &p.Content, &published, &created, &updated,
		&p.UserID, &p.SubjectID, &p.ImageURL,
		&subID, &subName, &subSlug, &subCreated)
	if err != nil {
		return Post{}, err
	}
	p.Published = published == 1
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	if subID.Valid {
		p.Subject = &Subject{
			ID:        subID.String,
			Name:      subName.String,
			Slug:      subSlug.String,
			CreatedAt: fromNanos(subCreated.Int64),
		}
	}
	return p, nil
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPublished returns published posts with their subject embedded, newest
// first. If subjectID is non-empty, results are filtered to that subject.
func (s *Store) ListPublished(ctx context.Context, subjectID string) ([]Post, error) {
	if subjectID == "" {
		return s.queryPosts(ctx, `SELECT `+postColumns+postFrom+
			` WHERE p.published = 1 ORDER BY p.created_at DESC`)
	}
	return s.queryPosts(ctx, `SELECT `+postColumns+postFrom+
		` WHERE p.published = 1 AND p.subject_id = ? ORDER BY p.created_at DESC`, subjectID)
}

// GetPublished returns a single published post by id. An unpublished post is
// indistinguishable from a nonexistent one: both yield ErrNotFound.
func (s *Store) GetPublished(ctx context.Context, id string) (Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+postFrom+
		` WHERE p.id = ? AND p.published = 1`, id)
	return scanPost(row)
}

// GetOwned returns a post by id regardless of published status, but only if
// it belongs to userID. A post owned by someone else yields ErrNotFound.
func (s *Store) GetOwned(ctx context.Context, id, userID string) (Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+postFrom+
		` WHERE p.id = ? AND p.user_id = ?`, id, userID)
	return scanPost(row)
}

// ListOwned returns every post (published and drafts) belonging to userID,
// newest first.
func (s *Store) ListOwned(ctx context.Context, userID string) ([]Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+postFrom+
		` WHERE p.user_id = ? ORDER BY p.created_at DESC`, userID)
}

// CreatePost inserts a new post owned by p.UserID. The id and timestamps are
// assigned here; callers set title, content, subject, published, and owner.
func (s *Store) CreatePost(ctx context.Context, p *Post) error {
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	published := 0
	if p.Published {
		published = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, published, created_at, updated_at, user_id, subject_id, image_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Content, published, now.UnixNano(), now.UnixNano(), p.UserID, p.SubjectID, p.ImageURL)
	return err
}

// UpdatePost mutates title, content, and subject of the post identified by
// id, scoped by owner equality so a mismatched identity affects zero rows.
// Identifier, owner, published state, and created_at stay untouched.
func (s *Store) UpdatePost(ctx context.Context, id, userID, title, content, subjectID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, subject_id = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		title, content, subjectID, time.Now().UTC().UnixNano(), id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost permanently removes the post identified by id, scoped by owner
// equality. The filter is the authoritative ownership check; there is no
// advisory pre-read.
func (s *Store) DeletePost(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubjects returns all subjects ordered by name.
func (s *Store) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var sub Subject
		var created int64
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Slug, &created); err != nil {
			return nil, err
		}
		sub.CreatedAt = fromNanos(created)
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// InsertSubject adds a subject. There is no HTTP surface for this; it exists
// for seeding and provisioning.
func (s *Store) InsertSubject(ctx context.Context, sub *Subject) error {
	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC()
	if sub.Slug == "" {
		sub.Slug = Slugify(sub.Name)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (id, name, slug, created_at) VALUES (?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.Slug, sub.CreatedAt.UnixNano())
	return err
}

// CountSubjects returns the number of subjects.
func (s *Store) CountSubjects(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&n)
	return n, err
}

// CreateUser inserts a new identity with the given email and password hash.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, avatar_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.AvatarURL, u.CreatedAt.UnixNano())
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var u User
	var created int64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &created)
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

// GetUserByEmail returns the identity registered under email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, avatar_url, created_at
		 FROM users WHERE email = ?`, email))
}

// GetUserByID returns the identity with the given id.
func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, avatar_url, created_at
		 FROM users WHERE id = ?`, id))
}

// GetSettings loads the settings singleton. A missing row is not an error;
// it yields zero-value defaults.
func (s *Store) GetSettings(ctx context.Context) (SiteSettings, error) {
	var st SiteSettings
	var show int
	err := s.db.QueryRowContext(ctx,
		`SELECT site_name, site_description, show_owner_email FROM site_settings WHERE id = 1`).
		Scan(&st.SiteName, &st.SiteDescription, &show)
	if err == sql.ErrNoRows {
		return SiteSettings{}, nil
	}
	if err != nil {
		return SiteSettings{}, err
	}
	st.ShowOwnerEmail = show == 1
	return st, nil
}

// SaveSettings writes the complete settings record keyed by the fixed
// singleton id. Last write wins.
func (s *Store) SaveSettings(ctx context.Context, st SiteSettings) error {
	show := 0
	if st.ShowOwnerEmail {
		show = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO site_settings (id, site_name, site_description, show_owner_email)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   site_name = excluded.site_name,
		   site_description = excluded.site_description,
		   show_owner_email = excluded.show_owner_email`,
		st.SiteName, st.SiteDescription, show)
	return err
}
