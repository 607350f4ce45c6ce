package extraction

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
)

// Extractor defines the interface for turning a transcript into
// structured task candidates. Zero candidates is a valid result: a
// transcript with nothing actionable in it is not an error.
type Extractor interface {
	// ExtractTasks produces zero or more task items owned by the given
	// user, linked to the given job. Implementations must not write to
	// any store; persistence belongs to the caller.
	ExtractTasks(ctx context.Context, transcript string, ownerID, jobID uuid.UUID) ([]*domain.TaskItem, error)
}
