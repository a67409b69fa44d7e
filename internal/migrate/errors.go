package migrate

import "errors"

// Precondition and recovery errors
var (
	ErrDirtyWorkingTree   = errors.New("working tree has uncommitted changes to tracked files (set ALLOW_DIRTY=1 to override)")
	ErrRollbackImpossible = errors.New("rollback impossible: no tagged migration commit and no backups exist for this branch")
)
