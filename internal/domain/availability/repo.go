package availability

import "context"

// Repository stores each doctor's weekly template as rows of blocks.
type Repository interface {
	// ListByDoctor returns the rows as stored, ordered by (day, clinic, start).
	ListByDoctor(ctx context.Context, doctorID int64) ([]StoredBlock, error)
	// ReplaceForDoctor atomically swaps the doctor's rows for blocks.
	ReplaceForDoctor(ctx context.Context, doctorID int64, blocks []Block) error
}
