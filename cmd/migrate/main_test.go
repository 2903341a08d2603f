package main

import "testing"

func TestParsePlace(t *testing.T) {
	p, err := parsePlace([]string{"p1", "Guggenheim", "43.2687", "-2.9340"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "p1" || p.Name != "Guggenheim" || p.Location.Lat != 43.2687 || p.Location.Lon != -2.9340 {
		t.Errorf("unexpected place %+v", p)
	}
}

func TestParsePlace_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"p1", "x", "1"}},
		{"bad lat", []string{"p1", "x", "north", "1"}},
		{"lat out of range", []string{"p1", "x", "91", "1"}},
		{"lon out of range", []string{"p1", "x", "1", "-181"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePlace(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}
