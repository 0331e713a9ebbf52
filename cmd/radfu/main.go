// Command radfu is the host-side DFU tool for Renesas RA boot
// firmware: it opens a session over a serial link and runs a single
// verb (info, read, write, erase, ...) against it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/session"
	"github.com/daedaluz/radfu/transport"
)

var (
	flagPort        = flag.String("port", "/dev/ttyACM0", "serial device node")
	flagAddress     = flag.Uint("address", 0, "start address for read/write/verify/erase/crc/blank-check")
	flagSize        = flag.Uint("size", 0, "byte count for read/erase/crc/blank-check (0 = to end of area)")
	flagBaudrate    = flag.Int("baudrate", 0, "negotiate to this line rate after connecting (0 = device max)")
	flagID          = flag.String("id", "", "32 hex chars (optional 0x prefix): authentication id code")
	flagEraseAll    = flag.Bool("erase-all", false, "use the all-erase magic id code instead of --id")
	flagVerify      = flag.Bool("verify", false, "read back and compare after write")
	flagInputFormat = flag.String("input-format", "auto", "bin, ihex, srec, or auto (by file extension)")
	flagUART        = flag.Bool("uart", false, "link is a raw UART, not USB-CDC (restore 9600 bps on close)")
	flagCFS1        = flag.Uint("cfs1", 0, "boundary-set: code flash secure size 1, KB")
	flagCFS2        = flag.Uint("cfs2", 0, "boundary-set: code flash secure size 2, KB")
	flagDFS         = flag.Uint("dfs", 0, "boundary-set: data flash secure size, KB")
	flagSRS1        = flag.Uint("srs1", 0, "boundary-set: secure region size 1, KB")
	flagSRS2        = flag.Uint("srs2", 0, "boundary-set: secure region size 2, KB")
	flagRetries     = flag.Int("retries", 0, "handshake retry bound (0 = handshake.DefaultRetries)")
)

func main() {
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	verb, rest := args[0], args[1:]

	v, ok := verbs[verb]
	if !ok {
		log.Printf("radfu: unknown verb %q", verb)
		usage()
		os.Exit(2)
	}

	t, err := transport.OpenSerial(*flagPort)
	if err != nil {
		log.Fatalf("radfu: open %s: %v", *flagPort, err)
	}
	s, err := session.Open(t, session.Options{UART: *flagUART, Retries: *flagRetries})
	if err != nil {
		log.Fatalf("radfu: connect: %v", err)
	}
	defer s.Close()

	if _, err := s.NegotiateBaud(*flagBaudrate); err != nil {
		log.Fatalf("radfu: baud negotiation: %v", err)
	}

	if err := authenticateIfRequested(s); err != nil {
		log.Fatalf("radfu: authenticate: %v", err)
	}

	if err := v(s, rest); err != nil {
		log.Fatalf("radfu: %s: %v", verb, err)
	}
}

// authenticateIfRequested runs CmdIDAuth when the caller asked for it
// via --erase-all or --id. A device that replies
// ERR_PACKET because it needs no authentication is not a failure
// (protocol.IsUnauthenticated); any other error is.
func authenticateIfRequested(s *session.Session) error {
	var id [16]byte
	switch {
	case *flagEraseAll:
		id = session.AllEraseID
	case *flagID != "":
		key, err := parseKeySpec16(*flagID)
		if err != nil {
			return err
		}
		id = key
	default:
		return nil
	}
	if err := s.Authenticate(id); err != nil && !protocol.IsUnauthenticated(err) {
		return err
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: radfu [flags] <verb> [args]\n\nverbs:\n")
	for _, name := range verbNames {
		fmt.Fprintf(os.Stderr, "  %s\n", name)
	}
	fmt.Fprintf(os.Stderr, "\nflags:\n")
	flag.PrintDefaults()
}
