// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import "errors"

// errCancelled is returned internally when a scan is aborted via
// CancelToken.Cancel or context cancellation. Scheduler.Run translates it
// into the same value so callers can detect cancellation with errors.Is.
var errCancelled = errors.New("pipeline: scan cancelled")

// ErrCancelled is the error Scheduler.Run returns when a scan was
// cancelled rather than completing or failing.
var ErrCancelled = errCancelled
