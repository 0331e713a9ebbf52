package area

import "testing"

func testMap() *Map {
	return &Map{Areas: [4]Area{
		{KOA: 0x00, SAD: 0x00000000, EAD: 0x0001FFFF, EAU: 0x2000, WAU: 0x100, RAU: 0x4, CAU: 0x4},
		{KOA: 0x10, SAD: 0x08000000, EAD: 0x0800FFFF, EAU: 0x800, WAU: 0x4, RAU: 0x4, CAU: 0x4},
		{KOA: 0x20, SAD: 0x00100000, EAD: 0x00100FFF, EAU: 0, WAU: 0x4, RAU: 0x4, CAU: 0x4},
		{KOA: 0x21, SAD: 0x00101000, EAD: 0x00101FFF, EAU: 0x1000, WAU: 0x4, RAU: 0x4, CAU: 0x4},
	}}
}

func TestFindTotality(t *testing.T) {
	m := testMap()
	for _, addr := range []uint32{0, 0x1000, 0x0001FFFF, 0x08000000, 0x00100500, 0x00101FFF} {
		a, err := m.Find(addr)
		if err != nil {
			t.Errorf("Find(%#x): unexpected error %v", addr, err)
			continue
		}
		if addr < a.SAD || addr > a.EAD {
			t.Errorf("Find(%#x) returned non-containing area [%#x,%#x]", addr, a.SAD, a.EAD)
		}
	}
	if _, err := m.Find(0xFFFFFFFF); err == nil {
		t.Error("Find(0xFFFFFFFF) should not find an area")
	}
}

func TestBoundsErase(t *testing.T) {
	m := testMap()
	end, err := m.Bounds(OpErase, 0, 0x2000)
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if end != 0x1FFF {
		t.Errorf("end = %#x, want 0x1FFF", end)
	}
}

func TestBoundsSizeZeroDefaultsToAreaEnd(t *testing.T) {
	m := testMap()
	end, err := m.Bounds(OpRead, 0x08000000, 0)
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if end != 0x0800FFFF {
		t.Errorf("end = %#x, want area EAD", end)
	}
}

func TestBoundsUnsupportedOperation(t *testing.T) {
	m := testMap()
	if _, err := m.Bounds(OpErase, 0x00100000, 0x10); err == nil {
		t.Fatal("expected unsupported-operation error for EAU=0 area")
	} else if ae, ok := err.(*AlignmentError); !ok || !ae.Unsupported {
		t.Fatalf("err = %v, want AlignmentError{Unsupported: true}", err)
	}
}

func TestBoundsMisalignedStart(t *testing.T) {
	m := testMap()
	if _, err := m.Bounds(OpErase, 0x1000, 0x1000); err == nil {
		t.Fatal("expected alignment error for misaligned start")
	}
}

func TestBoundsExceedsAreaEnd(t *testing.T) {
	m := testMap()
	if _, err := m.Bounds(OpErase, 0, 0x00020001); err == nil {
		t.Fatal("expected error: erase size would exceed area end")
	}
}

func TestFindKind(t *testing.T) {
	m := testMap()
	a, err := m.FindKind(KindConfig)
	if err != nil {
		t.Fatalf("FindKind(KindConfig): %v", err)
	}
	if a.Kind() != KindConfig {
		t.Errorf("FindKind(KindConfig) returned area with Kind() = %#x", a.Kind())
	}
	m2 := &Map{}
	if _, err := m2.FindKind(KindConfig); err == nil {
		t.Fatal("expected error when no area of the requested kind is configured")
	}
}

func TestBoundsIdempotence(t *testing.T) {
	m := testMap()
	for _, start := range []uint32{0x08000000, 0x08000004, 0x08000100} {
		for _, size := range []uint32{1, 4, 5, 1000} {
			end, err := m.Bounds(OpWrite, start, size)
			if err != nil {
				continue
			}
			align := uint64(m.Areas[1].WAU)
			units := (uint64(size) + align - 1) / align
			want := uint64(start) + units*align - 1
			if uint64(end) != want {
				t.Errorf("Bounds(write, %#x, %d) = %#x, want %#x", start, size, end, want)
			}
		}
	}
}
