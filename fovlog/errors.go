package fovlog

import "github.com/pkg/errors"

var (
	// ErrMissingDependency is reported once when a detector's view parameters are not configured.
	// Ticks of the affected observer become no-ops.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrNoTargetFound is returned by destination queries that found no valid point.
	// Callers recover by staying where they are.
	ErrNoTargetFound = errors.New("no target found")
	// ErrLogWrite marks a failed append to a log sink. It is recoverable.
	ErrLogWrite = errors.New("log write failure")
)
