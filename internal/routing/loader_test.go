package routing

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/can2mqtt/internal/convert"
	"github.com/danmuck/can2mqtt/internal/protocol/frame"
	"github.com/danmuck/can2mqtt/internal/testutil/testlog"
)

const sample = `123,none,car/door
2048,bytecolor2colorcode,light/color

0x1,none,never
`

func TestParseBuildsBothTables(t *testing.T) {
	testlog.Start(t)
	src := "123,none,car/door\r\n2048,bytecolor2colorcode,light/color\n\n536870911,2uint82ascii,max/id\n"
	gen, err := Parse(strings.NewReader(src), convert.DefaultRegistry())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gen.Len() != 3 || len(gen.Bus) != 3 || len(gen.Broker) != 3 {
		t.Fatalf("unexpected sizes: entries=%d bus=%d broker=%d", gen.Len(), len(gen.Bus), len(gen.Broker))
	}
	route, ok := gen.Bus["light/color"]
	if !ok || route.ID != 2048 || route.Conv.Name() != "bytecolor2colorcode" {
		t.Fatalf("bus route wrong: %+v ok=%v", route, ok)
	}
	back, ok := gen.Broker[frame.ID(123)]
	if !ok || back.Topic != "car/door" {
		t.Fatalf("broker route wrong: %+v ok=%v", back, ok)
	}
	if gen.Broker[frame.ID(2048)].Conv != gen.Bus["light/color"].Conv {
		t.Fatalf("both tables must share one converter instance")
	}
	if gen.Entries[2].Line != 4 || gen.Entries[2].Topic != "max/id" {
		t.Fatalf("entries not sorted by id with physical lines: %+v", gen.Entries)
	}
}

func TestParseRejectsWithLineNumber(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		src  string
		line int
		want error
	}{
		{"hex id", sample, 4, ErrInvalidID},
		{"negative id", "-1,none,a\n", 1, ErrInvalidID},
		{"id out of range", "536870912,none,a\n", 1, ErrInvalidID},
		{"unknown converter", "1,none,a\n2,rainbow,b\n", 2, ErrUnknownConverter},
		{"converter case", "1,None,a\n", 1, ErrUnknownConverter},
		{"duplicate id", "1,none,a\n1,none,b\n", 2, ErrDuplicateID},
		{"duplicate topic", "1,none,a\n\n3,none,a\n", 3, ErrDuplicateTopic},
		{"two fields", "1,none\n", 1, ErrMalformedRecord},
		{"four fields", "1,none,a,b\n", 1, ErrMalformedRecord},
		{"quoted is verbatim", "\"1\",none,a\n", 1, ErrInvalidID},
		{"empty topic", "1,none,\n", 1, ErrEmptyTopic},
	}
	for _, tc := range cases {
		_, err := Parse(strings.NewReader(tc.src), convert.DefaultRegistry())
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		var lerr *LineError
		if !errors.As(err, &lerr) || lerr.Line != tc.line {
			t.Fatalf("%s: expected line %d, got %v", tc.name, tc.line, err)
		}
	}
}

func TestParseEmptySource(t *testing.T) {
	testlog.Start(t)
	gen, err := Parse(strings.NewReader("\n\n"), convert.DefaultRegistry())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gen.Len() != 0 || gen.Bus == nil || gen.Broker == nil {
		t.Fatalf("expected empty non-nil tables: %+v", gen)
	}
}

func TestTopicIsVerbatim(t *testing.T) {
	testlog.Start(t)
	gen, err := Parse(strings.NewReader("5,none, spaced topic \n"), convert.DefaultRegistry())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := gen.Bus[" spaced topic "]; !ok {
		t.Fatalf("topic was altered: %v", gen.Bus.Topics())
	}
}

func TestLoadFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "can2mqtt.csv")
	if err := os.WriteFile(path, []byte("1,sixteenbool2ascii,bits\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gen, err := LoadFile(path, convert.DefaultRegistry())
	if err != nil || gen.Len() != 1 {
		t.Fatalf("load: gen=%+v err=%v", gen, err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.csv"), convert.DefaultRegistry()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestTopicsSorted(t *testing.T) {
	testlog.Start(t)
	tbl := BusTable{"b": {}, "a": {}, "c": {}}
	got := tbl.Topics()
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("topics=%v", got)
	}
}
