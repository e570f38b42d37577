package suggest

import "context"

// store is the consumer interface for best-effort persistence (ISP).
type store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}
