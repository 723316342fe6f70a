package spin

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptionsDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	want := PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}
	if opts != want {
		t.Errorf("Normalize() = %+v, want %+v", opts, want)
	}
}

func TestPortOptionsParityAliases(t *testing.T) {
	for in, want := range map[string]string{
		"":     "N",
		"none": "N",
		"E":    "E",
		"even": "E",
		"Odd":  "O",
	} {
		opts, err := PortOptions{Parity: in}.Normalize()
		if err != nil {
			t.Errorf("Normalize(parity=%q): %v", in, err)
			continue
		}
		if opts.Parity != want {
			t.Errorf("parity %q normalized to %q, want %q", in, opts.Parity, want)
		}
	}
}

func TestPortOptionsInvalid(t *testing.T) {
	cases := []PortOptions{
		{DataBits: 4},
		{DataBits: 9},
		{StopBits: 3},
		{Parity: "M"},
	}
	for _, opts := range cases {
		if _, err := opts.Normalize(); err == nil {
			t.Errorf("Normalize(%+v) succeeded, want error", opts)
		}
	}
}

func TestSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 9600, Parity: "even", StopBits: 2}.SerialMode()
	if err != nil {
		t.Fatal(err)
	}
	if mode.BaudRate != 9600 || mode.DataBits != 8 {
		t.Errorf("mode = %+v", mode)
	}
	if mode.Parity != serial.EvenParity {
		t.Errorf("parity = %v, want EvenParity", mode.Parity)
	}
	if mode.StopBits != serial.TwoStopBits {
		t.Errorf("stop bits = %v, want TwoStopBits", mode.StopBits)
	}

	mode, err = PortOptions{}.SerialMode()
	if err != nil {
		t.Fatal(err)
	}
	if mode.StopBits != serial.OneStopBit {
		t.Errorf("default stop bits = %v, want OneStopBit", mode.StopBits)
	}
}
