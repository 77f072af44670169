package convert

import (
	"errors"
	"fmt"
	"sort"
)

var ErrConverterNil = errors.New("convert: converter is nil")

// Registry stores converters by canonical name. It is filled once and
// only read afterwards.
type Registry struct {
	items map[string]*Converter
}

// NewRegistry creates an empty converter registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Converter)}
}

// DefaultRegistry holds the fixed converters plus every legal integer
// variant.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []*Converter{None(), MyMode(), ByteColor(), PixelBin(), SixteenBool()} {
		mustRegister(r, c)
	}
	for _, build := range []func(int, int) (*Converter, error){NewUint, NewInt} {
		for _, bits := range []int{8, 16, 32, 64} {
			for _, instances := range []int{1, 2, 4, 8} {
				c, err := build(instances, bits)
				if err != nil {
					continue
				}
				mustRegister(r, c)
			}
		}
	}
	return r
}

func mustRegister(r *Registry, c *Converter) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Register adds a converter under its name.
func (r *Registry) Register(c *Converter) error {
	if c == nil {
		return ErrConverterNil
	}
	if _, ok := r.items[c.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrNameExists, c.Name())
	}
	r.items[c.Name()] = c
	return nil
}

// Lookup returns the converter registered under name.
func (r *Registry) Lookup(name string) (*Converter, bool) {
	c, ok := r.items[name]
	return c, ok
}

func (r *Registry) Len() int {
	return len(r.items)
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
