package pickup

import (
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("pickup location not found")

type Repository interface {
	ListActive() ([]Location, error)
	GetByID(id int) (Location, error)
	Create(loc Location) (Location, error)
	Update(id int, loc Location) (Location, error)
	Delete(id int) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListActive() ([]Location, error) {
	rows, err := r.db.Query(`SELECT location_id, name, address, city, is_active
		FROM pickup_locations WHERE is_active ORDER BY location_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Location, 0)
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.City, &loc.IsActive); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(id int) (Location, error) {
	var loc Location
	err := r.db.QueryRow(`SELECT location_id, name, address, city, is_active
		FROM pickup_locations WHERE location_id = $1`, id).
		Scan(&loc.ID, &loc.Name, &loc.Address, &loc.City, &loc.IsActive)
	if err == sql.ErrNoRows {
		return Location{}, ErrNotFound
	}
	if err != nil {
		return Location{}, err
	}
	return loc, nil
}

func (r *PostgresRepository) Create(loc Location) (Location, error) {
	err := r.db.QueryRow(`INSERT INTO pickup_locations (name, address, city, is_active)
		VALUES ($1, $2, $3, $4) RETURNING location_id`,
		loc.Name, loc.Address, loc.City, loc.IsActive).Scan(&loc.ID)
	if err != nil {
		return Location{}, err
	}
	return loc, nil
}

func (r *PostgresRepository) Update(id int, loc Location) (Location, error) {
	res, err := r.db.Exec(`UPDATE pickup_locations SET name = $1, address = $2, city = $3, is_active = $4
		WHERE location_id = $5`,
		loc.Name, loc.Address, loc.City, loc.IsActive, id)
	if err != nil {
		return Location{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Location{}, ErrNotFound
	}
	loc.ID = id
	return loc, nil
}

func (r *PostgresRepository) Delete(id int) error {
	res, err := r.db.Exec(`DELETE FROM pickup_locations WHERE location_id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
