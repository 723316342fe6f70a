package spin

import (
	"fmt"
	"strconv"
	"strings"
)

// Reply tokens used by the control-channel protocol.
const (
	replyOK  = "OK"
	replyErr = "ERR"
)

// parseNodeReply decodes a GET reply. Numeric nodes answer with
// "<name> <value> <min> <max>"; enum and bool nodes answer with
// "<name> <token>".
func parseNodeReply(name string, kind NodeKind, line string) (Node, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Node{}, fmt.Errorf("empty reply for node %q", name)
	}
	if fields[0] == replyErr {
		return Node{}, fmt.Errorf("device error reading node %q: %s", name, strings.TrimSpace(line[len(replyErr):]))
	}
	if fields[0] != name {
		return Node{}, fmt.Errorf("reply for node %q names %q", name, fields[0])
	}

	n := Node{Name: name, Kind: kind}
	switch kind {
	case KindEnum:
		if len(fields) != 2 {
			return Node{}, fmt.Errorf("malformed enum reply for node %q: %q", name, line)
		}
		n.Enum = fields[1]
		return n, nil

	case KindBool:
		if len(fields) != 2 {
			return Node{}, fmt.Errorf("malformed bool reply for node %q: %q", name, line)
		}
		switch fields[1] {
		case "1", "true", "True":
			n.Value = 1
		case "0", "false", "False":
			n.Value = 0
		default:
			return Node{}, fmt.Errorf("malformed bool reply for node %q: %q", name, line)
		}
		return n, nil
	}

	if len(fields) != 4 {
		return Node{}, fmt.Errorf("malformed numeric reply for node %q: %q", name, line)
	}
	var err error
	if n.Value, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return Node{}, fmt.Errorf("parsing value of node %q: %w", name, err)
	}
	if n.Min, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return Node{}, fmt.Errorf("parsing minimum of node %q: %w", name, err)
	}
	if n.Max, err = strconv.ParseFloat(fields[3], 64); err != nil {
		return Node{}, fmt.Errorf("parsing maximum of node %q: %w", name, err)
	}
	return n, nil
}

// parseAck checks a SET/START/STOP reply for the OK token.
func parseAck(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fmt.Errorf("empty acknowledgement")
	}
	switch fields[0] {
	case replyOK:
		return nil
	case replyErr:
		return fmt.Errorf("device error: %s", strings.TrimSpace(strings.TrimPrefix(line, replyErr)))
	}
	return fmt.Errorf("unexpected acknowledgement %q", line)
}

// formatSetValue renders a Set argument for the wire according to the node
// kind.
func formatSetValue(kind NodeKind, value any) (string, error) {
	switch kind {
	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("%w: wanted string, got %T", ErrBadValueType, value)
		}
		return s, nil
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("%w: wanted bool, got %T", ErrBadValueType, value)
		}
		if b {
			return "1", nil
		}
		return "0", nil
	case KindInt:
		v, err := numericValue(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(v), 10), nil
	}
	v, err := numericValue(value)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(v, 'g', -1, 64), nil
}
