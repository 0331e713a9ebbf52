package handshake

import (
	"testing"
	"time"

	"github.com/daedaluz/radfu/protocol"
)

// fakeTransport is a minimal in-memory stand-in for transport.Transport
// driven by a scripted byte-queue, enough to exercise the handshake
// state machine without real I/O.
type fakeTransport struct {
	sent  [][]byte
	queue []byte
}

func (f *fakeTransport) Send(data []byte) error {
	cp := append([]byte(nil), data...)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) Recv(buf []byte, timeout time.Duration) (int, error) {
	if len(f.queue) == 0 {
		return 0, nil
	}
	n := copy(buf, f.queue)
	f.queue = f.queue[n:]
	return n, nil
}

func (f *fakeTransport) Flush() error      { return nil }
func (f *fakeTransport) SetBaud(int) error { return nil }
func (f *fakeTransport) Close() error      { return nil }

func TestConnectFromScratch(t *testing.T) {
	ft := &fakeTransport{}
	// First Recv (probing after Inquire) sees a stray 0x00: not yet
	// synced. Then sync() sends 3 zero bytes and expects its own 0x00
	// reply. Then confirm() sends 0x55 and expects a boot code.
	ft.queue = append(ft.queue, protocol.SyncByte)
	ft.queue = append(ft.queue, protocol.SyncByte)
	ft.queue = append(ft.queue, protocol.BootCodeCortexM33)

	res, err := Connect(ft, 5)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if res.AlreadyConnected {
		t.Fatal("expected fresh handshake, not already-connected")
	}
	if res.BootCode != protocol.BootCodeCortexM33 {
		t.Errorf("BootCode = %#02x, want %#02x", res.BootCode, protocol.BootCodeCortexM33)
	}
	if len(ft.sent) < 3 {
		t.Fatalf("expected at least 3 sends (inquire, sync, confirm), got %d", len(ft.sent))
	}
}

func TestConnectAlreadyConnected(t *testing.T) {
	ft := &fakeTransport{}
	// Already in command mode: first probe byte is 0x81, followed by
	// a full reply to drain (len=2 -> RCB + 1 payload byte + SUM + ETX),
	// then the confirm exchange.
	ft.queue = append(ft.queue, protocol.SodReply)
	ft.queue = append(ft.queue, 0x00, 0x02, 0x00, 0x00, 0xFE, 0x03)
	ft.queue = append(ft.queue, protocol.BootCodeCortexM4)

	res, err := Connect(ft, 5)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !res.AlreadyConnected {
		t.Fatal("expected already-connected detection")
	}
	if res.BootCode != protocol.BootCodeCortexM4 {
		t.Errorf("BootCode = %#02x, want %#02x", res.BootCode, protocol.BootCodeCortexM4)
	}
}

func TestConnectBadBootCode(t *testing.T) {
	ft := &fakeTransport{}
	// Probe byte then sync-ack byte get sync() past step 3 cleanly, so
	// the single confirm attempt (retries=1) lands on the boot-code
	// byte itself and exercises confirm()'s unexpected-boot-code
	// branch rather than failing earlier inside sync().
	ft.queue = append(ft.queue, protocol.SyncByte)
	ft.queue = append(ft.queue, protocol.SyncByte)
	ft.queue = append(ft.queue, 0xAA) // not a valid boot code
	if _, err := Connect(ft, 1); err == nil {
		t.Fatal("expected error for unrecognized boot code")
	}
}
