package learning

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrProfileNotFound signals an absent profile; callers substitute defaults.
var ErrProfileNotFound = errors.New("preference profile not found")

type StoreErrorKind string

const (
	StoreUnavailable StoreErrorKind = "unavailable"
	StoreConflict    StoreErrorKind = "conflict"
)

type StoreError struct {
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func newStoreError(kind StoreErrorKind, err error) *StoreError {
	return &StoreError{Kind: kind, Err: err}
}

// EventFilter narrows feedback event queries. Zero values mean "no bound".
type EventFilter struct {
	Tenant   string
	Platform string
	Since    time.Time
	Limit    int
}

// Store persists profiles and the append-only feedback event log.
type Store interface {
	LoadProfile(ctx context.Context, tenant string) (Profile, error)
	SaveProfile(ctx context.Context, profile Profile) error
	AppendFeedbackEvent(ctx context.Context, tenant string, event FeedbackEvent) error
	QueryFeedbackEvents(ctx context.Context, filter EventFilter) ([]FeedbackEvent, error)
}
