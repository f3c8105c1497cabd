package services

import "errors"

// ErrSyncAlreadyRunning reports a trigger that found another pipeline
// run still in flight. The trigger is skipped, never queued.
var ErrSyncAlreadyRunning = errors.New("a sync run is already in progress")
