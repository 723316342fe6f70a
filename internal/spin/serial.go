package spin

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// SerialCamera implements Camera over the device's UART control channel.
// The protocol is line oriented and strictly request/reply:
//
//	GET <name>         -> <name> <value> <min> <max>   (numeric nodes)
//	GET <name>         -> <name> <token>               (enum/bool nodes)
//	SET <name> <value> -> OK <name> <applied>
//	START / STOP       -> OK
//
// A mutex serializes commands so that replies are matched to the request that
// produced them.
type SerialCamera struct {
	mu        sync.Mutex
	port      io.ReadWriteCloser
	scan      *bufio.Scanner
	acquiring bool
}

// NewCameraOnPort wraps an already-open control channel. Tests use this with
// an in-memory pipe.
func NewCameraOnPort(port io.ReadWriteCloser) *SerialCamera {
	return &SerialCamera{
		port: port,
		scan: bufio.NewScanner(port),
	}
}

// roundTrip writes one command line and reads one reply line. Callers must
// hold mu.
func (c *SerialCamera) roundTrip(command string) (string, error) {
	if _, err := io.WriteString(c.port, command+"\n"); err != nil {
		return "", fmt.Errorf("writing command %q: %w", command, err)
	}
	if !c.scan.Scan() {
		if err := c.scan.Err(); err != nil {
			return "", fmt.Errorf("reading reply to %q: %w", command, err)
		}
		return "", fmt.Errorf("control channel closed while awaiting reply to %q", command)
	}
	return c.scan.Text(), nil
}

// Node implements Camera.
func (c *SerialCamera) Node(name string) (Node, error) {
	spec, ok := lookupNode(name)
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.roundTrip("GET " + name)
	if err != nil {
		return Node{}, err
	}
	return parseNodeReply(name, spec.kind, line)
}

// Set implements Camera.
func (c *SerialCamera) Set(name string, value any) error {
	spec, ok := lookupNode(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	if !spec.writable {
		return fmt.Errorf("%w: %q", ErrNodeNotWritable, name)
	}

	wire, err := formatSetValue(spec.kind, value)
	if err != nil {
		return fmt.Errorf("node %q: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if spec.streamLocked && c.acquiring {
		return fmt.Errorf("%w: %q", ErrBusy, name)
	}

	line, err := c.roundTrip(fmt.Sprintf("SET %s %s", name, wire))
	if err != nil {
		return err
	}
	if err := parseAck(line); err != nil {
		return fmt.Errorf("setting node %q: %w", name, err)
	}
	return nil
}

// StartAcquisition implements Camera.
func (c *SerialCamera) StartAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.roundTrip("START")
	if err != nil {
		return err
	}
	if err := parseAck(line); err != nil {
		return fmt.Errorf("starting acquisition: %w", err)
	}
	c.acquiring = true
	return nil
}

// StopAcquisition implements Camera.
func (c *SerialCamera) StopAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.roundTrip("STOP")
	if err != nil {
		return err
	}
	if err := parseAck(line); err != nil {
		return fmt.Errorf("stopping acquisition: %w", err)
	}
	c.acquiring = false
	return nil
}

// Acquiring implements Camera.
func (c *SerialCamera) Acquiring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquiring
}

// Close implements Camera.
func (c *SerialCamera) Close() error {
	return c.port.Close()
}
