package serial

import "syscall"

// OpenPTY opens a fresh /dev/ptmx master/slave pseudoterminal pair,
// unlocking the slave so it can be opened and, if termp is non-nil,
// configuring the slave's termios before handing it back. This backs
// the transport package's loopback tests: a goroutine drives the
// master side as a stand-in boot ROM while transport.Serial talks to
// the slave exactly as it would a real device node.
func OpenPTY(termp *Termios) (master, slave *Port, err error) {
	master, err = Open("/dev/ptmx", nil)
	if err != nil {
		return nil, nil, err
	}
	if err := master.SetLockPT(false); err != nil {
		master.Close()
		return nil, nil, err
	}
	slave, err = master.GetPTPeer(syscall.O_RDWR | syscall.O_NOCTTY)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	if termp != nil {
		if err := slave.SetAttr(TCSANOW, termp); err != nil {
			master.Close()
			slave.Close()
			return nil, nil, err
		}
	}
	return master, slave, nil
}
