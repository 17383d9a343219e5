package monitor

import (
	"runtime"

	"github.com/osa030/framecue/internal/app/playback"
)

const programName = "framecue"

// Message converts a StartPlayback error into text suitable for an end user.
func Message(err error) string {
	return message(err, runtime.GOOS)
}

func message(err error, goos string) string {
	msg := "Unable to start playback.\n"
	switch playback.StatusCode(err) {
	case playback.StatusEngineInit:
		return msg + "No audio device found."
	case playback.StatusStreamOpen:
		return msg + "Unable to find or open file."
	case playback.StatusInternalConsistency:
		return msg + "Inconsistent state. Trying to repair"
	case playback.StatusStreamFormat:
		return msg + "I/O error."
	}

	if goos == "linux" {
		return msg + "\n" + programName + " prefers exclusive access to the sound system.\n" +
			"Please close all sound-emitting programs and web pages and try again."
	}
	return msg + "Unspecified error."
}
