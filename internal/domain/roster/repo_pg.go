package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clinic/panel/internal/platform/db"
)

type doctorRepoPG struct{ pool db.Querier }

func NewDoctorRepoPG(pool db.Querier) DoctorRepository { return &doctorRepoPG{pool: pool} }

const clinicsForDoctorsSQL = `SELECT cd.doctor_id, c.id, c.name
	FROM clinic_doctors cd JOIN clinics c ON c.id = cd.clinic_id
	WHERE cd.doctor_id = ANY($1)
	ORDER BY cd.doctor_id, c.id`

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	var d Doctor
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM doctors WHERE id = $1`, id).Scan(&d.ID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select doctor %d: %w", id, err)
	}
	if err := r.attachClinics(ctx, []*Doctor{&d}); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM doctors ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	var items []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			rows.Close()
			return nil, 0, err
		}
		items = append(items, &d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return items, total, nil
	}
	if err := r.attachClinics(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *doctorRepoPG) attachClinics(ctx context.Context, doctors []*Doctor) error {
	byID := make(map[int64]*Doctor, len(doctors))
	ids := make([]int64, 0, len(doctors))
	for _, d := range doctors {
		d.Clinics = []Clinic{}
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}
	rows, err := r.pool.Query(ctx, clinicsForDoctorsSQL, ids)
	if err != nil {
		return fmt.Errorf("list clinic affiliations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var doctorID int64
		var c Clinic
		if err := rows.Scan(&doctorID, &c.ID, &c.Name); err != nil {
			return err
		}
		if d, ok := byID[doctorID]; ok {
			d.Clinics = append(d.Clinics, c)
		}
	}
	return rows.Err()
}
