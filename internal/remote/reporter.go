package remote

import "context"

// Reporter receives critical rejections the moment they are classified,
// ahead of the per-operation error records the stores keep. Implementations
// forward to an alerting channel; the call must not block store operations.
type Reporter interface {
	Report(ctx context.Context, err *Error)
}
