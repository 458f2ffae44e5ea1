// Package backend ensures the remote state store and its distributed lock
// table exist before any provisioning runs.
package backend

import (
	"context"
	"fmt"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/pipeline"
	"github.com/ideas-api/stackctl/internal/resource"
	"github.com/ideas-api/stackctl/internal/util/wait"
)

// StateBackend is the platform surface the bootstrapper needs.
// Implemented by *platform/aws.Client.
type StateBackend interface {
	BucketExists(ctx context.Context, bucketName string) (resource.Existence, error)
	CreateStateBucket(ctx context.Context, bucketName string) error
	TableExists(ctx context.Context, tableName string) (resource.Existence, error)
	CreateLockTable(ctx context.Context, tableName string) error
	TableActive(ctx context.Context, tableName string) (bool, error)
}

// Bootstrapper idempotently provisions the state bucket and lock table.
type Bootstrapper struct {
	backend  StateBackend
	cfg      config.BackendConfig
	timeouts *config.Timeouts
	observer pipeline.Observer
}

// New creates a backend bootstrapper.
func New(backend StateBackend, cfg config.BackendConfig, timeouts *config.Timeouts, observer pipeline.Observer) *Bootstrapper {
	return &Bootstrapper{
		backend:  backend,
		cfg:      cfg,
		timeouts: timeouts,
		observer: observer,
	}
}

// Ensure brings both backend resources into existence. After any number of
// repeated invocations exactly one bucket and one lock table exist: creates
// that race and report "already exists" are treated as success.
func (b *Bootstrapper) Ensure(ctx context.Context) error {
	if err := b.ensureBucket(ctx); err != nil {
		return err
	}
	return b.ensureTable(ctx)
}

// Ready reports whether both resources already exist, with no mutating calls.
// An Unknown probe is reported as not ready so the caller proceeds with the
// idempotent create path.
func (b *Bootstrapper) Ready(ctx context.Context) (bool, error) {
	bucket, err := b.backend.BucketExists(ctx, b.cfg.Bucket)
	if err != nil || bucket != resource.Present {
		return false, err
	}
	table, err := b.backend.TableExists(ctx, b.cfg.LockTable)
	if err != nil || table != resource.Present {
		return false, err
	}
	return true, nil
}

func (b *Bootstrapper) ensureBucket(ctx context.Context) error {
	existence, err := b.backend.BucketExists(ctx, b.cfg.Bucket)
	if err != nil {
		// Unknown: fall through to the create, which absorbs
		// already-exists responses.
		b.observer.Printf("state bucket probe inconclusive: %v", err)
	}
	if existence == resource.Present {
		b.observer.Event(pipeline.Event{Type: pipeline.EventResourceExists, Resource: b.cfg.Bucket, Message: "state bucket already exists"})
		return nil
	}

	if err := b.backend.CreateStateBucket(ctx, b.cfg.Bucket); err != nil {
		return fmt.Errorf("failed to bootstrap state bucket %s: %w", b.cfg.Bucket, err)
	}
	b.observer.Event(pipeline.Event{Type: pipeline.EventResourceCreated, Resource: b.cfg.Bucket, Message: "state bucket created"})
	return nil
}

func (b *Bootstrapper) ensureTable(ctx context.Context) error {
	existence, err := b.backend.TableExists(ctx, b.cfg.LockTable)
	if err != nil {
		b.observer.Printf("lock table probe inconclusive: %v", err)
	}
	if existence == resource.Present {
		b.observer.Event(pipeline.Event{Type: pipeline.EventResourceExists, Resource: b.cfg.LockTable, Message: "lock table already exists"})
		return nil
	}

	if err := b.backend.CreateLockTable(ctx, b.cfg.LockTable); err != nil {
		return fmt.Errorf("failed to bootstrap lock table %s: %w", b.cfg.LockTable, err)
	}
	b.observer.Event(pipeline.Event{Type: pipeline.EventResourceCreated, Resource: b.cfg.LockTable, Message: "lock table created"})

	// The table is created asynchronously; provisioning cannot lock
	// against a table that is still creating.
	outcome, err := wait.Await(ctx, wait.Condition{
		Name:        "lock-table-active",
		Interval:    b.timeouts.TableInterval,
		MaxAttempts: b.timeouts.TableMaxAttempts,
		OnTimeout:   wait.Fatal,
		Probe: func(ctx context.Context) (bool, error) {
			return b.backend.TableActive(ctx, b.cfg.LockTable)
		},
	})
	if err != nil {
		return err
	}
	if outcome == wait.TimedOut {
		return fmt.Errorf("lock table %s did not become active", b.cfg.LockTable)
	}

	return nil
}
