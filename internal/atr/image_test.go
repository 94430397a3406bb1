package atr

import "testing"

func TestCreateSingleDensityGeometry(t *testing.T) {
	img, err := Create("/tmp/x.atr", SingleDensity, false)
	if err != nil {
		t.Fatal(err)
	}
	if img.SectorCount() != 720 {
		t.Errorf("SectorCount = %d, want 720", img.SectorCount())
	}
	if img.SectorSize() != 128 {
		t.Errorf("SectorSize = %d, want 128", img.SectorSize())
	}
}

func TestCreateQuadDensityFails(t *testing.T) {
	_, err := Create("/tmp/q.atr", QuadDensity, false)
	if err == nil {
		t.Fatal("expected UnsupportedDensity error for quad density create")
	}
}

func TestDoubleDensityShortBootSectors(t *testing.T) {
	img, err := Create("/tmp/d.atr", DoubleDensity, false)
	if err != nil {
		t.Fatal(err)
	}
	for n := 1; n <= 3; n++ {
		if img.ActualSectorSize(n) != 128 {
			t.Errorf("ActualSectorSize(%d) = %d, want 128", n, img.ActualSectorSize(n))
		}
	}
	if img.ActualSectorSize(4) != 256 {
		t.Errorf("ActualSectorSize(4) = %d, want 256", img.ActualSectorSize(4))
	}
}

func TestReadWriteSectorRoundTrip(t *testing.T) {
	img, _ := Create("/tmp/t.atr", SingleDensity, false)
	data := make([]byte, 128)
	for i := range data {
		data[i] = byte(i)
	}
	if err := img.WriteSector(10, data); err != nil {
		t.Fatal(err)
	}
	got, err := img.ReadSector(10)
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestWriteSectorWrongSizeFails(t *testing.T) {
	img, _ := Create("/tmp/t.atr", SingleDensity, false)
	if err := img.WriteSector(10, make([]byte, 64)); err == nil {
		t.Fatal("expected SectorSizeMismatch error")
	}
}

func TestReadSectorOutOfRangeFails(t *testing.T) {
	img, _ := Create("/tmp/t.atr", SingleDensity, false)
	if _, err := img.ReadSector(0); err == nil {
		t.Fatal("expected SectorOutOfRange for sector 0")
	}
	if _, err := img.ReadSector(721); err == nil {
		t.Fatal("expected SectorOutOfRange for sector past the end")
	}
}

func TestWriteSectorRejectsReadOnly(t *testing.T) {
	img, _ := Create("/tmp/t.atr", SingleDensity, true)
	if err := img.WriteSector(10, make([]byte, 128)); err == nil {
		t.Fatal("expected ReadOnly error")
	}
}

func TestParseEncodeRoundTrip(t *testing.T) {
	img, _ := Create("/tmp/t.atr", SingleDensity, false)
	original := make([]byte, HeaderSize+len(img.data))
	copy(original, img.header.encode())
	copy(original[HeaderSize:], img.data)

	parsed, err := Parse(original, Strict)
	if err != nil {
		t.Fatal(err)
	}
	reencoded := append(append([]byte(nil), parsed.header.encode()...), parsed.data...)
	if len(reencoded) != len(original) {
		t.Fatalf("length mismatch: %d vs %d", len(reencoded), len(original))
	}
	for i := range original {
		if reencoded[i] != original[i] {
			t.Fatalf("byte %d differs: %d vs %d", i, reencoded[i], original[i])
		}
	}
}

func TestParseSizeMismatchStrict(t *testing.T) {
	img, _ := Create("/tmp/t.atr", SingleDensity, false)
	short := append(img.header.encode(), img.data[:100]...)
	if _, err := Parse(short, Strict); err == nil {
		t.Fatal("expected SizeMismatch in strict mode")
	}
}

func TestParseSizeMismatchLenientPads(t *testing.T) {
	img, _ := Create("/tmp/t.atr", SingleDensity, false)
	short := append(img.header.encode(), img.data[:100]...)
	parsed, err := Parse(short, Lenient)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.data) != len(img.data) {
		t.Errorf("lenient parse data length = %d, want %d", len(parsed.data), len(img.data))
	}
}

func TestSaveIsIdempotentWhenClean(t *testing.T) {
	img, _ := CreateFormatted("/tmp/clean-idempotent-test.atr", SingleDensity)
	if err := img.SaveAs(img.path); err != nil {
		t.Fatal(err)
	}
	if img.IsDirty() {
		t.Fatal("expected clean after save")
	}
	// A second Save on a clean image must perform no I/O and return nil.
	if err := img.Save(); err != nil {
		t.Fatal(err)
	}
}
