package service

import "errors"

var (
	// ErrPullFailed wraps the error that stopped the pull phase of a pass.
	ErrPullFailed = errors.New("pull failed")
	// ErrPushFailed wraps the error that stopped the push phase of a pass.
	ErrPushFailed = errors.New("push failed")
	// ErrPassAborted is recorded when a pass is cancelled.
	ErrPassAborted = errors.New("pass aborted")
)
