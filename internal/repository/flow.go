package repository

import "context"

// FlowStore keeps identity flow snapshots between requests. Keys are
// "<flow kind>:<flow id>". Missing or expired keys yield
// domain.ErrFlowNotFound.
type FlowStore interface {
	Save(ctx context.Context, key string, snapshot []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Lock takes the step lock for key. A held lock yields domain.ErrFlowBusy.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
