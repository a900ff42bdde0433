// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package datastore

import "fmt"

// ErrSchemaTooNew is returned by Open when the on-disk schema_version is
// newer than this binary understands.
type ErrSchemaTooNew struct {
	OnDisk int
	Known  int
}

func (e *ErrSchemaTooNew) Error() string {
	return fmt.Sprintf("datastore: schema version %d is newer than this binary supports (max %d); upgrade noseyparker", e.OnDisk, e.Known)
}
