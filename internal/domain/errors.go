package domain

import "errors"

// Sentinel errors for sync operations
var (
	// ErrFetch indicates the remote page could not be fetched or decoded
	ErrFetch = errors.New("failed to fetch page")

	// ErrStore indicates a local persistence failure
	ErrStore = errors.New("local store failure")

	// ErrServerOffline indicates the remote service is unreachable
	ErrServerOffline = errors.New("remote service is unreachable")

	// ErrAuthFailed indicates the API key was rejected
	ErrAuthFailed = errors.New("api key is invalid")
)
