package domain

import "errors"

var (
	ErrFetchFailed     = errors.New("fetch failed")
	ErrTagFailed       = errors.New("tagging failed")
	ErrCoverFailed     = errors.New("cover fetch failed")
	ErrPlacementFailed = errors.New("placement failed")
	ErrCancelled       = errors.New("download cancelled")
	ErrEmptyBatch      = errors.New("batch has no items")
	ErrManagerStopped  = errors.New("download manager stopped")
)
