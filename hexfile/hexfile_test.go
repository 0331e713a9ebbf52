package hexfile

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseIHexDataAndEOF(t *testing.T) {
	input := ":10000000000102030405060708090A0B0C0D0E0F78\n:00000001FF\n"
	pf, err := Parse(strings.NewReader(input), "fw.hex", IHex)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pf.BaseAddress != 0 {
		t.Errorf("BaseAddress = %#x, want 0", pf.BaseAddress)
	}
	if pf.Size() != 16 {
		t.Errorf("Size = %d, want 16", pf.Size())
	}
	for i, b := range pf.Image {
		if b != byte(i) {
			t.Errorf("Image[%d] = %#02x, want %#02x", i, b, i)
		}
	}
}

func TestParseSRecS2(t *testing.T) {
	input := "S0030000FC\n" +
		"S214080000DEADBEEFCAFEBABE010203040506070847\n" +
		"S804000000FB\n"
	pf, err := Parse(strings.NewReader(input), "fw.srec", SRec)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pf.BaseAddress != 0x080000 {
		t.Errorf("BaseAddress = %#x, want 0x080000", pf.BaseAddress)
	}
	if pf.Size() != 16 {
		t.Errorf("Size = %d, want 16", pf.Size())
	}
	if pf.Image[0] != 0xDE || pf.Image[1] != 0xAD {
		t.Errorf("Image[0:2] = %x, want [de ad]", pf.Image[:2])
	}
}

func TestIHexRoundTrip(t *testing.T) {
	image := make([]byte, 300)
	for i := range image {
		image[i] = byte(i * 31)
	}
	base := uint32(0x0002FFF0) // straddles a 64KiB boundary
	var buf bytes.Buffer
	if err := Emit(&buf, "out.hex", IHex, image, base); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	pf, err := Parse(&buf, "out.hex", IHex)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pf.BaseAddress != base {
		t.Errorf("BaseAddress = %#x, want %#x", pf.BaseAddress, base)
	}
	if !bytes.Equal(pf.Image, image) {
		t.Error("image round-trip mismatch")
	}
}

func TestSRecRoundTrip(t *testing.T) {
	image := make([]byte, 300)
	for i := range image {
		image[i] = byte(i * 13)
	}
	base := uint32(0x08001000)
	var buf bytes.Buffer
	if err := Emit(&buf, "out.srec", SRec, image, base); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	pf, err := Parse(&buf, "out.srec", SRec)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pf.BaseAddress != base {
		t.Errorf("BaseAddress = %#x, want %#x", pf.BaseAddress, base)
	}
	if !bytes.Equal(pf.Image, image) {
		t.Error("image round-trip mismatch")
	}
}

func TestIHexGapFill(t *testing.T) {
	// Two data records with a gap between them; the gap must read back
	// as 0xFF.
	input := ":04000000DEADBEEFC4\n" +
		":04100000CAFEBABEAC\n" +
		":00000001FF\n"
	pf, err := Parse(strings.NewReader(input), "gap.hex", IHex)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pf.BaseAddress != 0 {
		t.Fatalf("BaseAddress = %#x, want 0", pf.BaseAddress)
	}
	if pf.Size() != 0x1004 {
		t.Fatalf("Size = %#x, want 0x1004", pf.Size())
	}
	for i := 4; i < 0x1000; i++ {
		if pf.Image[i] != 0xFF {
			t.Fatalf("Image[%#x] = %#02x, want 0xFF gap fill", i, pf.Image[i])
		}
	}
}

func TestIHexBadChecksum(t *testing.T) {
	input := ":10000000000102030405060708090A0B0C0D0E0F00\n:00000001FF\n"
	if _, err := Parse(strings.NewReader(input), "bad.hex", IHex); err == nil {
		t.Fatal("expected checksum error")
	}
}

func TestIHexMissingEOF(t *testing.T) {
	input := ":10000000000102030405060708090A0B0C0D0E0F78\n"
	if _, err := Parse(strings.NewReader(input), "noeof.hex", IHex); err == nil {
		t.Fatal("expected missing-EOF error")
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"fw.hex":   IHex,
		"fw.IHEX":  IHex,
		"fw.srec":  SRec,
		"fw.s19":   SRec,
		"fw.S37":   SRec,
		"fw.bin":   Bin,
		"fw":       Bin,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestMerge(t *testing.T) {
	files := []*ParsedFile{
		{BaseAddress: 0x100, HasAddress: true, Image: []byte{0xCA, 0xFE}},
		{BaseAddress: 0x000, HasAddress: true, Image: []byte{0xDE, 0xAD}},
	}
	merged, err := Merge(files)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.BaseAddress != 0 || merged.Size() != 0x102 {
		t.Fatalf("merged = base %#x size %#x, want base 0 size 0x102", merged.BaseAddress, merged.Size())
	}
	if merged.Image[0] != 0xDE || merged.Image[0x100] != 0xCA {
		t.Error("merged image contents misplaced")
	}
	if merged.Image[2] != 0xFF {
		t.Error("gap between files should be 0xFF filled")
	}
}

func TestBinRoundTrip(t *testing.T) {
	image := []byte{1, 2, 3, 4, 5}
	var buf bytes.Buffer
	if err := Emit(&buf, "out.bin", Bin, image, 0); err != nil {
		t.Fatal(err)
	}
	pf, err := Parse(&buf, "out.bin", Bin)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pf.Image, image) {
		t.Error("bin round-trip mismatch")
	}
}
