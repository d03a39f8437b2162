package availability

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinic/panel/internal/platform/db"
)

const foreignKeyViolation = "23503"

type repoPG struct{ pool db.TxQuerier }

func NewRepoPG(pool db.TxQuerier) Repository { return &repoPG{pool: pool} }

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]StoredBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, clinic_id,
			to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS')
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week, clinic_id, start_time`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availability for doctor %d: %w", doctorID, err)
	}
	defer rows.Close()

	items := []StoredBlock{}
	for rows.Next() {
		var b StoredBlock
		if err := rows.Scan(&b.DayOfWeek, &b.ClinicID, &b.StartTime, &b.EndTime); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *repoPG) ReplaceForDoctor(ctx context.Context, doctorID int64, blocks []Block) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM doctor_availability WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("clear availability for doctor %d: %w", doctorID, err)
	}
	for _, b := range blocks {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctor_availability (doctor_id, clinic_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4::time, $5::time)`,
			doctorID, int64(b.Clinic), int(b.Day), b.Start.String(), b.End.String())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				// The affiliation was removed after the service checked it.
				err = &ValidationError{
					Field:  "clinic_id",
					Value:  strconv.FormatInt(int64(b.Clinic), 10),
					Reason: "doctor is not affiliated with this clinic",
				}
			}
			return fmt.Errorf("insert %s: %w", b, err)
		}
	}
	return tx.Commit(ctx)
}
