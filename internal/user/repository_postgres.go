package user

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `user_id, email, password, name, phone, role,
		COALESCE(reset_token_hash, ''), COALESCE(reset_expires_at, ''), created_at, updated_at`

	listUsersQuery = `SELECT ` + userColumns + ` FROM users ORDER BY user_id`

	getUserByIDQuery = `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	getUserByResetTokenQuery = `SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = $1`

	insertUserQuery = `
		INSERT INTO users (email, password, name, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING user_id`

	updateUserQuery = `
		UPDATE users
		SET email = $1,
			password = $2,
			name = $3,
			phone = $4,
			role = $5,
			reset_token_hash = NULLIF($6, ''),
			reset_expires_at = NULLIF($7, ''),
			updated_at = $8
		WHERE user_id = $9`

	deleteUserQuery = `DELETE FROM users WHERE user_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List() []User {
	rows, err := r.db.Query(listUsersQuery)
	if err != nil {
		return []User{}
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			continue
		}
		users = append(users, u)
	}
	return users
}

func (r *PostgresRepository) GetByID(id int) (User, error) {
	return r.getOne(getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(email string) (User, error) {
	return r.getOne(getUserByEmailQuery, email)
}

func (r *PostgresRepository) GetByResetToken(tokenHash string) (User, error) {
	return r.getOne(getUserByResetTokenQuery, tokenHash)
}

func (r *PostgresRepository) getOne(query string, arg any) (User, error) {
	u, err := scanUser(r.db.QueryRow(query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepository) Create(user User) (User, error) {
	if user.Role == "" {
		user.Role = RoleCustomer
	}
	err := r.db.QueryRow(
		insertUserQuery,
		user.Email, user.Password, user.Name, user.Phone, user.Role,
		user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return user, nil
}

func (r *PostgresRepository) Update(id int, user User) (User, error) {
	res, err := r.db.Exec(
		updateUserQuery,
		user.Email, user.Password, user.Name, user.Phone, user.Role,
		user.ResetTokenHash, user.ResetExpiresAt, user.UpdatedAt, id,
	)
	if err != nil {
		return User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return User{}, ErrNotFound
	}
	user.ID = id
	return user, nil
}

func (r *PostgresRepository) Delete(id int) error {
	res, err := r.db.Exec(deleteUserQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.Name, &u.Phone, &u.Role,
		&u.ResetTokenHash, &u.ResetExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return u, nil
}
