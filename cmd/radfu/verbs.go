package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/daedaluz/radfu/hexfile"
	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/session"
)

type verbFunc func(s *session.Session, args []string) error

var verbs = map[string]verbFunc{
	"info":         verbInfo,
	"read":         verbRead,
	"write":        verbWrite,
	"verify":       verbVerify,
	"erase":        verbErase,
	"blank-check":  verbBlankCheck,
	"crc":          verbCRC,
	"dlm":          verbDLM,
	"dlm-transit":  verbDLMTransit,
	"dlm-auth":     verbDLMAuth,
	"boundary":     verbBoundary,
	"boundary-set": verbBoundarySet,
	"param":        verbParam,
	"param-set":    verbParamSet,
	"init":         verbInit,
	"osis":         verbOSIS,
	"key-set":      verbKeySet,
	"key-verify":   verbKeyVerify,
	"ukey-set":     verbUKeySet,
	"ukey-verify":  verbUKeyVerify,
}

var verbNames = func() []string {
	names := make([]string, 0, len(verbs))
	for n := range verbs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}()

func verbInfo(s *session.Session, _ []string) error {
	sig, err := s.GetSignature()
	if err != nil {
		return err
	}
	fmt.Printf("product:       %s\n", sig.ProductName)
	fmt.Printf("device id:     %x\n", sig.DeviceID)
	fmt.Printf("boot fw ver:   %x\n", sig.BootFirmwareVersion)
	fmt.Printf("recommended max baud: %d\n", sig.RecommendedMaxBaud)
	fmt.Printf("group:         %v (boot code %#02x)\n", s.Group(), s.BootCode())
	for i, a := range s.Areas().Areas {
		fmt.Printf("area %d: koa=%#02x [%#08x,%#08x] eau=%#x wau=%#x rau=%#x cau=%#x\n",
			i, a.KOA, a.SAD, a.EAD, a.EAU, a.WAU, a.RAU, a.CAU)
	}
	return nil
}

func verbRead(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: read <file>")
	}
	format, err := hexfile.ParseFormat(*flagInputFormat)
	if err != nil {
		return err
	}
	data, err := s.Read(uint32(*flagAddress), uint32(*flagSize))
	if err != nil {
		return err
	}
	return hexfile.EmitFile(args[0], format, data, uint32(*flagAddress))
}

func verbWrite(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: write <file>")
	}
	format, err := hexfile.ParseFormat(*flagInputFormat)
	if err != nil {
		return err
	}
	pf, err := hexfile.ParseFile(args[0], format)
	if err != nil {
		return err
	}
	addr := uint32(*flagAddress)
	if pf.HasAddress {
		addr = pf.BaseAddress
	}
	return s.Write(addr, pf.Image, *flagVerify)
}

func verbVerify(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: verify <file>")
	}
	format, err := hexfile.ParseFormat(*flagInputFormat)
	if err != nil {
		return err
	}
	pf, err := hexfile.ParseFile(args[0], format)
	if err != nil {
		return err
	}
	addr := uint32(*flagAddress)
	if pf.HasAddress {
		addr = pf.BaseAddress
	}
	return s.Verify(addr, pf.Image)
}

func verbErase(s *session.Session, _ []string) error {
	return s.Erase(uint32(*flagAddress), uint32(*flagSize))
}

func verbBlankCheck(s *session.Session, _ []string) error {
	ok, err := s.BlankCheck(uint32(*flagAddress), uint32(*flagSize))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("range is not blank")
	}
	fmt.Println("blank")
	return nil
}

func verbCRC(s *session.Session, _ []string) error {
	crc, err := s.CRC(uint32(*flagAddress), uint32(*flagSize))
	if err != nil {
		return err
	}
	fmt.Printf("%#08x\n", crc)
	return nil
}

func verbDLM(s *session.Session, _ []string) error {
	state, err := s.DLMGet()
	if err != nil {
		return err
	}
	fmt.Println(state)
	return nil
}

func verbDLMTransit(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dlm-transit <state>")
	}
	to, err := session.ParseDLMState(args[0])
	if err != nil {
		return err
	}
	return s.DLMTransit(to)
}

func verbDLMAuth(s *session.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: dlm-auth <state> <key-spec>")
	}
	to, err := session.ParseDLMState(args[0])
	if err != nil {
		return err
	}
	key, err := parseKeySpec16(args[1])
	if err != nil {
		return err
	}
	return s.DLMAuthTransit(to, key)
}

func verbBoundary(s *session.Session, _ []string) error {
	b, err := s.BoundaryGet()
	if err != nil {
		return err
	}
	start, end := b.NSC()
	fmt.Printf("cfs1=%d cfs2=%d dfs=%d srs1=%d srs2=%d nsc=[%#08x,%#08x)\n",
		b.CFS1, b.CFS2, b.DFS, b.SRS1, b.SRS2, start, end)
	return nil
}

func verbBoundarySet(s *session.Session, _ []string) error {
	return s.BoundarySet(session.Boundary{
		CFS1: uint16(*flagCFS1),
		CFS2: uint16(*flagCFS2),
		DFS:  uint16(*flagDFS),
		SRS1: uint16(*flagSRS1),
		SRS2: uint16(*flagSRS2),
	})
}

func verbParam(s *session.Session, _ []string) error {
	p, err := s.ParamGet()
	if err != nil {
		return err
	}
	fmt.Printf("%x\n", p)
	return nil
}

func verbParamSet(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: param-set {enable|disable}")
	}
	switch args[0] {
	case "enable":
		return s.ParamSet(true)
	case "disable":
		return s.ParamSet(false)
	default:
		return fmt.Errorf("param-set: want enable or disable, got %q", args[0])
	}
}

func verbInit(s *session.Session, _ []string) error {
	return s.Initialize()
}

func verbOSIS(s *session.Session, _ []string) error {
	res, err := s.OSISAuto()
	if err != nil {
		return err
	}
	fmt.Printf("locked=%v mode=%v\n", res.Locked, osisModeName(res.Mode))
	return nil
}

func osisModeName(m session.OSISMode) string {
	switch m {
	case session.OSISModeDirect:
		return "direct"
	default:
		return "infer"
	}
}

func verbKeySet(s *session.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: key-set <type> <file>")
	}
	typ, err := parseKeyType(args[0])
	if err != nil {
		return err
	}
	key, err := parseKeySpec16(fmt.Sprintf("file:%s", args[1]))
	if err != nil {
		return err
	}
	return s.KeySet(typ, key)
}

func verbKeyVerify(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: key-verify <type>")
	}
	typ, err := parseKeyType(args[0])
	if err != nil {
		return err
	}
	key, err := parseKeySpec16(*flagID)
	if err != nil {
		return err
	}
	return s.KeyVerify(typ, key)
}

func verbUKeySet(s *session.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: ukey-set <idx> <file>")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("ukey-set: bad index %q: %w", args[0], err)
	}
	key, err := parseKeySpec16(fmt.Sprintf("file:%s", args[1]))
	if err != nil {
		return err
	}
	return s.UserKeySet(byte(idx), key)
}

func verbUKeyVerify(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ukey-verify <idx>")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("ukey-verify: bad index %q: %w", args[0], err)
	}
	key, err := parseKeySpec16(*flagID)
	if err != nil {
		return err
	}
	return s.UserKeyVerify(byte(idx), key)
}

// parseKeyType maps the CLI's <type> argument to protocol's typed key
// slot constants.
func parseKeyType(s string) (byte, error) {
	switch strings.ToLower(s) {
	case "secdbg":
		return protocol.KeyTypeSecDbg, nil
	case "nonsecdbg":
		return protocol.KeyTypeNonSecDbg, nil
	case "rma":
		return protocol.KeyTypeRMA, nil
	default:
		return 0, fmt.Errorf("unknown key type %q (want secdbg, nonsecdbg, or rma)", s)
	}
}

// parseKeySpec16 decodes a key specification -- "file:<path>"
// (16-byte binary) or "hex:<32-hex-chars>" -- into a fixed 16-byte
// key. All key material (id codes, DLM keys, typed and numbered key
// slots) shares this one format.
func parseKeySpec16(spec string) ([16]byte, error) {
	var key [16]byte
	var data []byte
	var err error
	switch {
	case strings.HasPrefix(spec, "file:"):
		data, err = os.ReadFile(strings.TrimPrefix(spec, "file:"))
		if err != nil {
			return key, err
		}
	case strings.HasPrefix(spec, "hex:"):
		data, err = decodeHexID(strings.TrimPrefix(spec, "hex:"))
	default:
		data, err = decodeHexID(spec)
	}
	if err != nil {
		return key, err
	}
	if len(data) != 16 {
		return key, fmt.Errorf("key is %d bytes, want 16", len(data))
	}
	copy(key[:], data)
	return key, nil
}

// decodeHexID decodes --id's 32 hex chars (optional 0x prefix).
func decodeHexID(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad hex id %q: %w", s, err)
	}
	return data, nil
}
