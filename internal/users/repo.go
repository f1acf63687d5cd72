package users

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strings"
)

type Repo struct{ DB *pgxpool.Pool }

const userColumns = `id, name, email, password, avatar, provider, role, cart_id, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Avatar, &u.Provider, &u.Role,
		&u.CartID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "user")
	}
	return &u, nil
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO users(id, name, email, password, avatar, provider, role, cart_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.Password, u.Avatar, u.Provider, u.Role, u.CartID,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return postgres.Translate(err, "user")
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *Repo) ByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, strings.TrimSpace(email)))
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, postgres.Translate(err, "user")
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, postgres.Translate(rows.Err(), "user")
}

func (r *Repo) SetCart(ctx context.Context, userID, cartID uuid.UUID) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE users SET cart_id=$2, updated_at=now() WHERE id=$1`, userID, cartID)
	if err != nil {
		return postgres.Translate(err, "user")
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`INSERT INTO refresh_tokens(token, user_id) VALUES ($1,$2)`, token, userID)
	return postgres.Translate(err, "refresh token")
}

func (r *Repo) RefreshTokenOwner(ctx context.Context, token string) (uuid.UUID, error) {
	var id uuid.UUID
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT user_id FROM refresh_tokens WHERE token=$1`, token).Scan(&id)
	if err != nil {
		return uuid.Nil, postgres.Translate(err, "refresh token")
	}
	return id, nil
}

func (r *Repo) DeleteRefreshToken(ctx context.Context, token string) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM refresh_tokens WHERE token=$1`, token)
	if err != nil {
		return postgres.Translate(err, "refresh token")
	}
	if ct.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
