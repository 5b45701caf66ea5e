package camera

import "testing"

func TestParseLens(t *testing.T) {
	tests := []struct {
		in      string
		want    LensType
		wantErr bool
	}{
		{"16mm", LensUltraWide, false},
		{"16", LensUltraWide, false},
		{"Ultra-Wide", LensUltraWide, false},
		{"24mm", LensWide, false},
		{" wide ", LensWide, false},
		{"50mm", LensTelephoto, false},
		{"tele", LensTelephoto, false},
		{"35mm", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLens(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLens(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLens(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLensProperties(t *testing.T) {
	tests := []struct {
		lens  LensType
		zoom  float64
		mm    int
		class string
	}{
		{LensUltraWide, 0.6, 16, "ultra-wide"},
		{LensWide, 1, 24, "wide"},
		{LensTelephoto, 2, 50, "telephoto"},
	}
	for _, tt := range tests {
		if !tt.lens.Valid() {
			t.Errorf("%s should be valid", tt.lens)
		}
		if got := tt.lens.Zoom(); got != tt.zoom {
			t.Errorf("%s zoom = %v, want %v", tt.lens, got, tt.zoom)
		}
		if got := tt.lens.FocalLength(); got != tt.mm {
			t.Errorf("%s focal length = %d, want %d", tt.lens, got, tt.mm)
		}
		if got := tt.lens.Class(); got != tt.class {
			t.Errorf("%s class = %q, want %q", tt.lens, got, tt.class)
		}
	}

	if LensType("85mm").Valid() {
		t.Error("85mm should not be valid")
	}
	if DefaultLens != LensWide {
		t.Errorf("default lens = %s, want 24mm", DefaultLens)
	}
}
