package palette

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestDefaultPalette(t *testing.T) {
	p := New()
	if c := p.Color8(0); c != (Color8{}) {
		t.Errorf("expected index 0 transparent black, got %s\n", c)
	}
	if c := p.Color8(1); c != (Color8{255, 255, 255, 255}) {
		t.Errorf("expected index 1 opaque white, got %s\n", c)
	}
	for i := 2; i < MaxColors; i++ {
		if c := p.Color(i); c != (Color8{0, 0, 0, 255}) {
			t.Fatalf("expected index %d opaque black, got %s\n", i, c)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	p := New()
	if p.SetColor(256, Color8{1, 2, 3, 4}) {
		t.Errorf("expected set at 256 to fail\n")
	}
	if p.SetColor(-1, Color8{1, 2, 3, 4}) {
		t.Errorf("expected set at -1 to fail\n")
	}
	if c := p.Color(300); c != Transparent {
		t.Errorf("expected transparent default for bad index, got %s\n", c)
	}
	if err := p.SetColors(make([]Color8, 10)); !errors.Is(err, ErrBadSize) {
		t.Errorf("expected bad size error, got %v\n", err)
	}
	if p.Color8(1) != (Color8{255, 255, 255, 255}) {
		t.Errorf("failed SetColors modified the palette\n")
	}
}

func TestPersistedData(t *testing.T) {
	p := New()
	p.SetColor(7, Color8{0x12, 0x34, 0x56, 0x78})
	data := p.Data()
	if len(data) != MaxColors {
		t.Fatalf("expected %d entries, got %d\n", MaxColors, len(data))
	}
	if data[7] != 0x12345678 {
		t.Errorf("expected R in most significant byte, got %08x\n", data[7])
	}
	if data[1] != 0xffffffff || data[0] != 0 || data[2] != 0x000000ff {
		t.Errorf("unexpected default packing: %08x %08x %08x\n", data[0], data[1], data[2])
	}

	q := New()
	q.Clear()
	if err := q.SetData(data); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if !reflect.DeepEqual(q.Colors(), p.Colors()) {
		t.Errorf("palette did not survive persistence\n")
	}
	if err := q.SetData(make([]uint32, MaxColors+1)); !errors.Is(err, ErrBadSize) {
		t.Errorf("expected bad size error, got %v\n", err)
	}
}

func TestConcurrentEdits(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < MaxColors; i++ {
				p.SetColor(i, Color8{uint8(w), uint8(i), 0, 255})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 16; i++ {
				if colors := p.Colors(); len(colors) != MaxColors {
					t.Errorf("expected %d colors, got %d\n", MaxColors, len(colors))
				}
				_ = p.Clone()
			}
		}()
	}
	wg.Wait()
	for i := 0; i < MaxColors; i++ {
		if c := p.Color(i); c.G != uint8(i) || c.A != 255 {
			t.Fatalf("index %d holds torn color %s\n", i, c)
		}
	}
}

func TestPackedColors(t *testing.T) {
	c := Color8{0xff, 0x80, 0x40, 0xff}
	if v := c.ToU8(); v != 0xe7 {
		t.Errorf("expected 8-bit packing 0xe7, got %02x\n", v)
	}
	if d := FromU8(c.ToU8()); d != (Color8{255, 170, 85, 255}) {
		t.Errorf("unexpected 8-bit decode %s\n", d)
	}
	if v := c.ToU16(); v != 0xf84f {
		t.Errorf("expected 16-bit packing 0xf84f, got %04x\n", v)
	}
	if d := FromU16(c.ToU16()); d != (Color8{255, 136, 68, 255}) {
		t.Errorf("unexpected 16-bit decode %s\n", d)
	}
	if d := FromU32(c.ToU32()); d != c {
		t.Errorf("32-bit packing is lossless, got %s\n", d)
	}
	if FromVec4(c.Vec4()) != c {
		t.Errorf("expected float round trip to be exact\n")
	}
}
