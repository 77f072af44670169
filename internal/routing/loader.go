package routing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/danmuck/can2mqtt/internal/convert"
	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

// BusRoute is where a broker topic goes on the bus.
type BusRoute struct {
	ID   frame.ID
	Conv *convert.Converter
}

// BrokerRoute is where a bus identifier goes on the broker.
type BrokerRoute struct {
	Topic string
	Conv  *convert.Converter
}

// BusTable maps topic to bus route; owned by the broker-side manager.
type BusTable map[string]BusRoute

// BrokerTable maps identifier to broker route; owned by the bus-side manager.
type BrokerTable map[frame.ID]BrokerRoute

// Topics returns the table's topics in sorted order.
func (t BusTable) Topics() []string {
	out := make([]string, 0, len(t))
	for topic := range t {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Entry is one accepted route, kept for listing.
type Entry struct {
	Line      int      `json:"line"`
	ID        frame.ID `json:"id"`
	Converter string   `json:"converter"`
	Topic     string   `json:"topic"`
}

// Generation is the pair of tables produced by one successful parse.
type Generation struct {
	Bus     BusTable
	Broker  BrokerTable
	Entries []Entry
}

// Len is the number of routes in the generation.
func (g Generation) Len() int {
	return len(g.Entries)
}

// Parse reads every record from r and validates it against reg.
func Parse(r io.Reader, reg *convert.Registry) (Generation, error) {
	gen := Generation{
		Bus:    make(BusTable),
		Broker: make(BrokerTable),
	}
	rr := NewRecordReader(r)
	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Generation{}, err
		}
		if err := gen.add(rec, reg); err != nil {
			return Generation{}, err
		}
	}
	sort.Slice(gen.Entries, func(i, j int) bool {
		return gen.Entries[i].ID < gen.Entries[j].ID
	})
	return gen, nil
}

func (g *Generation) add(rec Record, reg *convert.Registry) error {
	raw, err := strconv.ParseUint(rec.ID, 10, 32)
	if err != nil {
		return lineErr(rec.Line, ErrInvalidID, "%q", rec.ID)
	}
	id, err := frame.NewID(raw)
	if err != nil {
		return lineErr(rec.Line, ErrInvalidID, "%q", rec.ID)
	}
	conv, ok := reg.Lookup(rec.Converter)
	if !ok {
		return lineErr(rec.Line, ErrUnknownConverter, "%q", rec.Converter)
	}
	if strings.TrimSpace(rec.Topic) == "" {
		return lineErr(rec.Line, ErrEmptyTopic, "id %d", raw)
	}
	if _, exists := g.Broker[id]; exists {
		return lineErr(rec.Line, ErrDuplicateID, "%d", raw)
	}
	if _, exists := g.Bus[rec.Topic]; exists {
		return lineErr(rec.Line, ErrDuplicateTopic, "%q", rec.Topic)
	}
	g.Broker[id] = BrokerRoute{Topic: rec.Topic, Conv: conv}
	g.Bus[rec.Topic] = BusRoute{ID: id, Conv: conv}
	g.Entries = append(g.Entries, Entry{Line: rec.Line, ID: id, Converter: conv.Name(), Topic: rec.Topic})
	return nil
}

// LoadFile opens path and parses it.
func LoadFile(path string, reg *convert.Registry) (Generation, error) {
	f, err := os.Open(path)
	if err != nil {
		return Generation{}, fmt.Errorf("routing: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, reg)
}
