// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"fmt"

	"github.com/showrefs/showrefs/pkg/refgraph"
)

// Reloader returns an OnChange callback that reloads session and hands the
// new snapshot to publish. A failed reload leaves the session's previous
// snapshot current and is reported as the callback's error.
func Reloader(session *refgraph.Session, publish func(*refgraph.Snapshot)) func(context.Context, []string) error {
	return func(ctx context.Context, changed []string) error {
		snap, err := session.Reload(ctx)
		if err != nil {
			return fmt.Errorf("reload after %d changed files: %w", len(changed), err)
		}
		if publish != nil {
			publish(snap)
		}
		return nil
	}
}
