package coordinator

import (
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/workflow"
	pkgerrors "github.com/endomorphosis/ipfs-kit-py-sub032/pkg/errors"
)

// Sentinel errors re-exported (or defined) at the coordinator boundary,
// per §7. workflow.ErrNotFound / ErrConflict / ErrIllegalTransition /
// ErrInvalidStatus already carry the right *pkgerrors.Error; the rest are
// specific to coordinator-level operations.
var (
	ErrNotFound          = workflow.ErrNotFound
	ErrConflict          = workflow.ErrConflict
	ErrIllegalTransition = workflow.ErrIllegalTransition
	ErrInvalidStatus     = workflow.ErrInvalidStatus

	ErrPersistenceFailed = pkgerrors.NewError().
				WithCode(pkgerrors.CodePersistenceFailed).
				WithMessage("failed to persist coordinator state")
	ErrSnapshotCorrupt = pkgerrors.NewError().
				WithCode(pkgerrors.CodeSnapshotCorrupt).
				WithMessage("snapshot file is malformed")
)
