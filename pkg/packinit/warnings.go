package packinit

import (
	"errors"
	"fmt"
)

type WarningKind int

const (
	WarningPackNamesUnavailable WarningKind = iota
	WarningStatusFailed
	WarningPackUnavailable
	WarningDownloadCanceled
	WarningNetworkDenied
	WarningPackPathMissing
	WarningManifestFetchFailed
	WarningInterrupted
)

func (k WarningKind) String() string {
	switch k {
	case WarningPackNamesUnavailable:
		return "pack-names-unavailable"
	case WarningStatusFailed:
		return "pack-status-failed"
	case WarningPackUnavailable:
		return "pack-status-unknown"
	case WarningDownloadCanceled:
		return "download-canceled"
	case WarningNetworkDenied:
		return "network-permission-denied"
	case WarningPackPathMissing:
		return "pack-path-missing"
	case WarningManifestFetchFailed:
		return "manifest-fetch-failed"
	case WarningInterrupted:
		return "interrupted"
	}
	return fmt.Sprintf("warning(%d)", int(k))
}

// Warning explains why initialization fell back to default bundle
// locations. It never makes initialization fail.
type Warning struct {
	Kind    WarningKind
	Pack    string
	Message string
	Err     error
}

func (w *Warning) Error() string {
	return w.Message
}

func (w *Warning) Unwrap() error {
	return w.Err
}

func IsWarningKind(err error, kind WarningKind) bool {
	var warning *Warning
	if !errors.As(err, &warning) {
		return false
	}
	return warning.Kind == kind
}

func packNamesUnavailable() *Warning {
	return &Warning{
		Kind:    WarningPackNamesUnavailable,
		Message: "Cannot retrieve the names of the asset packs to download.",
	}
}

func statusFailed(pack string, err error) *Warning {
	message := fmt.Sprintf("Failed to retrieve the status of asset pack '%s'.", pack)
	if err != nil {
		message = fmt.Sprintf("Failed to retrieve the status of asset pack '%s': %v.", pack, err)
	}
	return &Warning{
		Kind:    WarningStatusFailed,
		Pack:    pack,
		Message: message,
		Err:     err,
	}
}

func packUnavailable(pack string) *Warning {
	return &Warning{
		Kind: WarningPackUnavailable,
		Pack: pack,
		Message: fmt.Sprintf(
			"Asset pack '%s' is unavailable for this application. This can happen when the application was not installed through the store.",
			pack,
		),
	}
}

func downloadCanceled(pack string) *Warning {
	return &Warning{
		Kind:    WarningDownloadCanceled,
		Pack:    pack,
		Message: fmt.Sprintf("Request to download asset pack '%s' was cancelled.", pack),
	}
}

func networkDenied() *Warning {
	return &Warning{
		Kind:    WarningNetworkDenied,
		Message: "Request to use the mobile network was denied.",
	}
}

func packPathMissing(pack string) *Warning {
	return &Warning{
		Kind:    WarningPackPathMissing,
		Pack:    pack,
		Message: fmt.Sprintf("Downloaded asset pack '%s' but cannot locate it on the device.", pack),
	}
}

func manifestFetchFailed(name string, err error) *Warning {
	return &Warning{
		Kind:    WarningManifestFetchFailed,
		Message: fmt.Sprintf("Could not load '%s': %v.", name, err),
		Err:     err,
	}
}

func interrupted(err error) *Warning {
	return &Warning{
		Kind:    WarningInterrupted,
		Message: fmt.Sprintf("Initialization was interrupted: %v.", err),
		Err:     err,
	}
}
