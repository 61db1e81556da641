package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
)

// Close closes c and logs a failure instead of returning it. Nil is a no-op.
func Close(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("close failed", slog.Any("error", err))
	}
}

// ReadAll reads at most limit bytes from r. The second return value reports
// whether r held more than limit bytes.
func ReadAll(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
