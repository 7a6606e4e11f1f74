package facts

import (
	"context"
	"log/slog"

	"github.com/w31r4/gowhy/internal/why"
)

// Detect picks the fact provider for this host. The native tables are
// preferred; when they cannot be listed the ps fallback takes over.
func Detect(ctx context.Context, log *slog.Logger) why.Provider {
	if log == nil {
		log = slog.Default()
	}
	_, err := Native{}.ListAll(ctx)
	if err == nil {
		return Native{}
	}
	log.Debug("native process tables unavailable, using ps", "error", err)
	return PSUtil{}
}
