package storage

import (
	"context"

	"github.com/Dosada05/rating-board/models"
)

// SnapshotExporter publishes the merged user snapshot after a successful
// sync run. Export failures never roll back the durable snapshot; callers
// treat them as warnings.
type SnapshotExporter interface {
	Export(ctx context.Context, users []models.User) error
}
