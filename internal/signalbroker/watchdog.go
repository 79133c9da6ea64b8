// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
)

// Watch reads sigCh until it is closed or the context ends.
// The second signal of a given type calls cancel. sigCh stays registered and open,
// so later signals are dropped by os/signal while the run shuts down; the owner
// releases it with Stop.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, dup := seen[sig]; dup {
				ctxlog.Warn(ctx, "received second signal, cancelling run", "signal", sig.String())
				cancel()

				return
			}

			ctxlog.Info(ctx, "received signal, forwarding to running jobs", "signal", sig.String())

			seen[sig] = struct{}{}
		}
	}
}
