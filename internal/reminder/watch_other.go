//go:build !linux

package reminder

import (
	"context"
	"errors"
)

var errWatchUnsupported = errors.New("directory watch is only supported on linux")

func watch(context.Context, string, chan<- struct{}) error {
	return errWatchUnsupported
}
