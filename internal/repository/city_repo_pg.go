package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGCityRepository struct {
	pgRepo
}

func NewCityRepository(db *pgxpool.Pool) CityRepository {
	return &PGCityRepository{pgRepo: newPGRepo(db)}
}

func (r *PGCityRepository) Create(ctx context.Context, city *domain.City) error {
	err := r.conn(ctx).QueryRow(ctx, `INSERT INTO cities (name, country) VALUES ($1, $2) RETURNING id`, city.Name, city.Country).
		Scan(&city.ID)
	return translate(err, "create city")
}

func (r *PGCityRepository) GetByID(ctx context.Context, id int64) (*domain.City, error) {
	var c domain.City
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name, country FROM cities WHERE id=$1`, id).Scan(&c.ID, &c.Name, &c.Country)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("city %d", id))
	}
	return &c, nil
}

func (r *PGCityRepository) List(ctx context.Context) ([]domain.City, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, country FROM cities ORDER BY name, country`)
	if err != nil {
		return nil, translate(err, "list cities")
	}
	defer rows.Close()

	cities := make([]domain.City, 0)
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

func (r *PGCityRepository) Update(ctx context.Context, city *domain.City) error {
	cmd, err := r.conn(ctx).Exec(ctx, `UPDATE cities SET name=$2, country=$3 WHERE id=$1`, city.ID, city.Name, city.Country)
	if err != nil {
		return translate(err, fmt.Sprintf("update city %d", city.ID))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("city %d: %w", city.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PGCityRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.conn(ctx).Exec(ctx, `DELETE FROM cities WHERE id=$1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("delete city %d", id))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("city %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

var _ CityRepository = (*PGCityRepository)(nil)
