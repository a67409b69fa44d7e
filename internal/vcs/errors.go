package vcs

import "errors"

// Checkout and history errors
var (
	ErrBranchNotFound   = errors.New("branch not found locally or on the remote")
	ErrNoTaggedCommit   = errors.New("no commit carrying the migration tag")
	ErrRootCommitRevert = errors.New("cannot revert a commit without a parent")
	ErrAlreadyReverted  = errors.New("working tree already matches the commit's parent")
)
