package assetpack

import (
	"fmt"
)

// Status is the download state the platform reports for a single asset pack.
type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusDownloading
	StatusTransferring
	StatusCompleted
	StatusFailed
	StatusCanceled
	StatusWaitingForNetwork
	StatusNotInstalled
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusPending:
		return "pending"
	case StatusDownloading:
		return "downloading"
	case StatusTransferring:
		return "transferring"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	case StatusWaitingForNetwork:
		return "waiting-for-network"
	case StatusNotInstalled:
		return "not-installed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether no further events will arrive for the pack.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled, StatusUnknown:
		return true
	}
	return false
}

type StatusEvent struct {
	Pack            string
	Status          Status
	BytesDownloaded int64
	TotalBytes      int64
	// Set by the platform for StatusFailed.
	Err error
}

func (e StatusEvent) Progress() float64 {
	if e.TotalBytes <= 0 {
		return 0
	}
	return float64(e.BytesDownloaded) / float64(e.TotalBytes)
}

// Platform is the asset pack API surface the initializer consumes. Callbacks
// may be invoked from any goroutine.
type Platform interface {
	// IsTarget reports whether the running platform delivers content
	// through asset packs at all.
	IsTarget() bool
	// CoreDownloaded reports whether the packs holding the application's
	// built-in content are already on the device.
	CoreDownloaded() bool
	// PackNames lists the packs that still require a download.
	PackNames() []string
	// Download requests the given packs. onStatus receives every status
	// change for them until each reaches a terminal status.
	Download(names []string, onStatus func(StatusEvent))
	// PackPath returns the directory holding a downloaded pack.
	PackPath(name string) (string, bool)
	// RequestCellularPermission asks the user to allow downloads over a
	// metered connection.
	RequestCellularPermission(onResult func(granted bool))
}
