package theme

import (
	"reflect"
	"testing"
)

func TestRegistry(t *testing.T) {
	want := []string{"purple", "blue", "green", "gray", "neutral"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	if Default().Name != "purple" {
		t.Fatalf("default theme = %s", Default().Name)
	}

	for _, th := range All() {
		if th.Marker == th.SelectedMarker {
			t.Errorf("%s: selected marker must differ", th.Name)
		}
		if !th.Colors.NavigationLine.IsValid() {
			t.Errorf("%s: invalid navigation line color", th.Name)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	themes := All()
	themes[0].Name = "changed"

	if Default().Name != "purple" {
		t.Fatal("registry was modified through All()")
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		hex  string
	}{
		{name: "blue", ok: true, hex: "#45abe8"},
		{name: " GREEN ", ok: true, hex: "#59e324"},
		{name: "orange", ok: false},
	}

	for _, tt := range tests {
		th, ok := Lookup(tt.name)
		if ok != tt.ok {
			t.Fatalf("Lookup(%q) ok = %v", tt.name, ok)
		}
		if ok && th.Colors.Primary.Hex() != tt.hex {
			t.Errorf("Lookup(%q) primary = %s, want %s", tt.name, th.Colors.Primary.Hex(), tt.hex)
		}
	}
}
