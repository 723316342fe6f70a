package spin

import (
	"go.bug.st/serial"
)

// NewSerialCamera opens the camera's control channel at the given serial port
// path using the provided options.
func NewSerialCamera(path string, opts PortOptions) (*SerialCamera, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewCameraOnPort(port), nil
}
