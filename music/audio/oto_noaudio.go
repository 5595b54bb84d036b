//go:build noaudio

package audio

func openOtoOutput(sampleRate int) (Output, error) {
	return nil, ErrDeviceUnavailable
}
