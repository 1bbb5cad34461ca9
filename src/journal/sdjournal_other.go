//go:build !linux || !cgo

package journal

import (
	"errors"

	"logrero/src/apperr"
	"logrero/src/logger"
)

// Open reports that the systemd journal is unavailable on this build.
func Open(log logger.Logger, opts ...Option) (*Source, error) {
	return nil, &apperr.SourceError{Op: "open", Err: errors.New("systemd journal support requires linux and cgo")}
}
