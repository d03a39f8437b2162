package roster

import "context"

type DoctorRepository interface {
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
}
