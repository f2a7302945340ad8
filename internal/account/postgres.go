package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"matchbook.org/internal/ids"
)

const uniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL. The profile document lives in a
// jsonb column; email and password hash are kept in their own columns.
type PGStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db, now: time.Now}
}

// OpenPostgres opens a pgx-backed pool with service defaults.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func (s *PGStore) Create(ctx context.Context, p *Profile) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := s.now().UTC()
	p.ContactInfo.Email = NormalizeEmail(p.ContactInfo.Email)
	p.CreatedAt, p.UpdatedAt = now, now

	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("account: encode profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, profile, created_at, updated_at) values($1,$2,$3,$4,$5,$6)`,
		p.ID, p.ContactInfo.Email, p.PasswordHash, doc, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("account: insert user: %w", err)
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, profile, created_at, updated_at from users where id=$1`, id)
	return scanProfile(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, profile, created_at, updated_at from users where email=$1`, NormalizeEmail(email))
	return scanProfile(row)
}

func scanProfile(row *sql.Row) (*Profile, error) {
	var (
		p   Profile
		id  string
		em  string
		pwh string
		doc []byte
		ca  time.Time
		ua  time.Time
	)
	if err := row.Scan(&id, &em, &pwh, &doc, &ca, &ua); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("account: select user: %w", err)
	}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("account: decode profile %s: %w", id, err)
		}
	}
	// Columns are authoritative over whatever the document carries.
	p.ID = id
	p.ContactInfo.Email = em
	p.PasswordHash = pwh
	p.CreatedAt = ca
	p.UpdatedAt = ua
	return &p, nil
}
