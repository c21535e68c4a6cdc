package ui

import "sync/atomic"

// Stats accumulates totals across every page of a run.
type Stats struct {
	TotalPages    atomic.Int64
	TotalImages   atomic.Int64
	TotalFailed   atomic.Int64
	TotalBytes    atomic.Int64
	TotalArchives atomic.Int64
}
