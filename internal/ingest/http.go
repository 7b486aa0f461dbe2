package ingest

import (
	"context"

	"github.com/AngelCh415/perftracker/internal/utils"
)

// GetJSONWithRetry retries transport failures and non-2xx answers with
// exponential backoff until b gives up or ctx ends.
func GetJSONWithRetry(ctx context.Context, c HTTPClient, url string, dst any, b utils.Backoff) error {
	return b.Do(ctx, func(int) error {
		return getJSON(ctx, c, url, dst)
	})
}
