package repos

import (
	"context"

	"rocktheauction/internal/domain"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT id,email,name,password_hash,role FROM users WHERE LOWER(email)=LOWER(?)`), email)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT id,email,name,password_hash,role FROM users WHERE id=?`), id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// Ensure inserts the user unless the email is already registered.
func (r *UserRepo) Ensure(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO users(id,email,name,password_hash,role)
		VALUES(?,?,?,?,?)
		ON CONFLICT(email) DO NOTHING
	`), u.ID, u.Email, u.Name, u.Hash, u.Role)
	return mapErr(err)
}
