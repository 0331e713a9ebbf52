package protocol

import (
	"bytes"
	"testing"
)

func TestCalcSumVectors(t *testing.T) {
	cases := []struct {
		cmd  byte
		data []byte
		want byte
	}{
		{0x12, []byte{0x00}, 0xEC},
		{0x34, []byte{0x00}, 0xCA},
		{0x00, []byte{0x00}, 0xFE},
	}
	for _, c := range cases {
		got := calcSum(0x00, 0x02, c.cmd, c.data)
		if got != c.want {
			t.Errorf("calcSum(cmd=%#02x, data=%v) = %#02x, want %#02x", c.cmd, c.data, got, c.want)
		}
	}
}

func TestUnpackOK(t *testing.T) {
	buf := []byte{0x81, 0x00, 0x02, 0x00, 0x00, 0xFE, 0x03}
	cmd, payload, err := Unpack(buf)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if cmd != 0x00 {
		t.Errorf("cmd = %#02x, want 0x00", cmd)
	}
	if !bytes.Equal(payload, []byte{0x00}) {
		t.Errorf("payload = %v, want [0x00]", payload)
	}
}

func TestUnpackError(t *testing.T) {
	buf := []byte{0x81, 0x00, 0x02, 0x93, 0xC3, 0xA8, 0x03}
	cmd, _, err := Unpack(buf)
	if cmd != 0x93 {
		t.Errorf("cmd = %#02x, want 0x93", cmd)
	}
	mcu, ok := err.(*McuError)
	if !ok {
		t.Fatalf("err = %v (%T), want *McuError", err, err)
	}
	if mcu.Code != ErrCodeFlow {
		t.Errorf("mcu.Code = %#02x, want %#02x", mcu.Code, ErrCodeFlow)
	}
}

func TestPackRoundTrip(t *testing.T) {
	// Command ids live below 0x80: the high bit of a reply RCB is the
	// error marker, so ids >= 0x80 are reserved for the error-reply
	// encoding (covered by TestErrorBitRoundTrip).
	for cmd := 0; cmd < 0x80; cmd++ {
		for _, n := range []int{0, 1, 17, 1000, 1024} {
			data := make([]byte, n)
			for i := range data {
				data[i] = byte(i * 7)
			}
			packed, err := Pack(byte(cmd), data, true)
			if err != nil {
				t.Fatalf("Pack(%d, len=%d): %v", cmd, n, err)
			}
			gotCmd, gotPayload, err := Unpack(packed)
			if err != nil {
				t.Fatalf("Unpack(Pack(%d, len=%d)): %v", cmd, n, err)
			}
			if gotCmd != byte(cmd) {
				t.Errorf("cmd round-trip: got %#02x want %#02x", gotCmd, cmd)
			}
			if !bytes.Equal(gotPayload, data) {
				t.Errorf("payload round-trip mismatch for cmd=%d len=%d", cmd, n)
			}
		}
	}
}

func TestErrorBitRoundTrip(t *testing.T) {
	// An RCB with the high bit set decodes as an MCU error reply: the
	// echoed command keeps the bit, and the first payload byte is
	// surfaced as the error code.
	for _, code := range []byte{ErrCodeFlow, ErrCodeProtection, ErrCodeEraseFailed} {
		packed, err := Pack(CmdErase|0x80, []byte{code}, true)
		if err != nil {
			t.Fatalf("Pack: %v", err)
		}
		cmd, payload, err := Unpack(packed)
		if cmd != CmdErase|0x80 {
			t.Errorf("cmd = %#02x, want %#02x", cmd, CmdErase|0x80)
		}
		if len(payload) != 1 || payload[0] != code {
			t.Errorf("payload = %v, want [%#02x]", payload, code)
		}
		mcu, ok := err.(*McuError)
		if !ok {
			t.Fatalf("err = %v (%T), want *McuError", err, err)
		}
		if mcu.Code != code {
			t.Errorf("mcu.Code = %#02x, want %#02x", mcu.Code, code)
		}
	}
}

func TestPackOversizePayload(t *testing.T) {
	_, err := Pack(CmdWrite, make([]byte, MaxPayload+1), false)
	if err != ErrOversizePayload {
		t.Fatalf("err = %v, want ErrOversizePayload", err)
	}
}

func TestChecksumLaw(t *testing.T) {
	packed, err := Pack(CmdErase, []byte{0x01, 0x02, 0x03}, false)
	if err != nil {
		t.Fatal(err)
	}
	lnh, lnl, rcb := packed[1], packed[2], packed[3]
	payload := packed[4 : len(packed)-2]
	sum := packed[len(packed)-2]
	total := int(lnh) + int(lnl) + int(rcb) + int(sum)
	for _, b := range payload {
		total += int(b)
	}
	if total%256 != 0 {
		t.Errorf("checksum law violated: total mod 256 = %d", total%256)
	}
}

func TestUnpackShortBuffer(t *testing.T) {
	if _, _, err := Unpack([]byte{0x81, 0x00}); err == nil {
		t.Fatal("expected error on short buffer")
	}
}

func TestUnpackBadSOD(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x02, 0x00, 0x00, 0xFE, 0x03}
	if _, _, err := Unpack(buf); err == nil {
		t.Fatal("expected error on bad SOD")
	}
}

func TestUnpackBadETX(t *testing.T) {
	buf := []byte{0x81, 0x00, 0x02, 0x00, 0x00, 0xFE, 0x00}
	if _, _, err := Unpack(buf); err == nil {
		t.Fatal("expected error on bad ETX")
	}
}

func TestErrorNameUnknown(t *testing.T) {
	if got := ErrorName(0xAB); got == "" {
		t.Fatal("ErrorName should never return empty string")
	}
}
