package service

import "errors"

var (
	// ErrCacheUnavailable means the shared dedup cache could not answer.
	// Without it the service cannot prove a packet is new, so ingestion is
	// refused rather than risking duplicate fanout.
	ErrCacheUnavailable = errors.New("dedup cache unavailable")

	// ErrStorageFailed means the durability sink rejected the write. The
	// packet's dedup entry stands, so a retransmission within the window
	// is still treated as a duplicate.
	ErrStorageFailed = errors.New("storage write failed")

	// ErrNotConfigured means a fanout target required for the protocol has
	// no client wired.
	ErrNotConfigured = errors.New("fanout target not configured")
)
