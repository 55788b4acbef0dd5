// Package task manages the lifecycle of background processing tasks:
// creation with per-user caps, progress updates, cooperative
// cancellation, terminal transitions and retention. The Manager is the
// sole writer of task records; stores only persist them.
package task
