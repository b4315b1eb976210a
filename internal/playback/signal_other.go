//go:build windows

package playback

import (
	"errors"
	"os"
)

var errPauseUnsupported = errors.New("pause is not supported on this platform")

func pauseProcess(*os.Process) error { return errPauseUnsupported }

func resumeProcess(*os.Process) error { return errPauseUnsupported }
