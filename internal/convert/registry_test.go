package convert

import (
	"errors"
	"sort"
	"testing"

	"github.com/danmuck/can2mqtt/internal/testutil/testlog"
)

func TestDefaultRegistryContents(t *testing.T) {
	testlog.Start(t)
	r := DefaultRegistry()
	if r.Len() != 25 {
		t.Fatalf("expected 25 converters, got %d: %v", r.Len(), r.Names())
	}
	for _, name := range []string{
		"none", "mymode", "bytecolor2colorcode", "pixelbin2ascii", "sixteenbool2ascii",
		"uint82ascii", "8uint82ascii", "4int162ascii", "2uint322ascii", "int642ascii",
	} {
		c, ok := r.Lookup(name)
		if !ok || c.Name() != name {
			t.Fatalf("lookup %q failed", name)
		}
	}
	for _, name := range []string{"8uint162ascii", "2int642ascii", "uint2ascii", "NONE", ""} {
		if _, ok := r.Lookup(name); ok {
			t.Fatalf("unexpected converter %q", name)
		}
	}
	if !sort.StringsAreSorted(r.Names()) {
		t.Fatalf("names not sorted: %v", r.Names())
	}
}

func TestRegisterDuplicateAndNil(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	if err := r.Register(ByteColor()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(ByteColor()); !errors.Is(err, ErrNameExists) {
		t.Fatalf("expected ErrNameExists, got %v", err)
	}
	if err := r.Register(nil); !errors.Is(err, ErrConverterNil) {
		t.Fatalf("expected ErrConverterNil, got %v", err)
	}
}

func TestLookupReturnsSharedInstance(t *testing.T) {
	testlog.Start(t)
	r := DefaultRegistry()
	a, _ := r.Lookup("pixelbin2ascii")
	b, _ := r.Lookup("pixelbin2ascii")
	if a != b {
		t.Fatalf("expected one shared converter instance")
	}
}
