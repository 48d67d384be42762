// Package dataset holds the loaded flight table and its column descriptors.
package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// NotAvailable is shown for a description or statistic that does not apply.
const NotAvailable = "N/A"

// Dataset is the immutable result of one load of the input files.
type Dataset struct {
	Flights     dataframe.DataFrame
	Descriptors Descriptors
	Fingerprint string // md5 of both input files
	LoadedAt    time.Time
	Source      string
}

// Descriptor documents one flight-table column.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Label       string `json:"label"`
}

// Descriptors is a keyed lookup of column descriptors, in file order.
type Descriptors struct {
	byName map[string]Descriptor
	order  []string
}

// NewDescriptors builds the lookup; duplicate or empty names are rejected.
func NewDescriptors(list []Descriptor) (Descriptors, error) {
	d := Descriptors{byName: make(map[string]Descriptor, len(list))}
	for i, desc := range list {
		desc.Name = strings.TrimSpace(desc.Name)
		if desc.Name == "" {
			return Descriptors{}, fmt.Errorf("descriptor row %d: empty column name", i+1)
		}
		if _, dup := d.byName[desc.Name]; dup {
			return Descriptors{}, fmt.Errorf("descriptor row %d: duplicate column %q", i+1, desc.Name)
		}
		d.byName[desc.Name] = desc
		d.order = append(d.order, desc.Name)
	}
	return d, nil
}

// Lookup returns the descriptor for a column.
func (d Descriptors) Lookup(name string) (Descriptor, bool) {
	desc, ok := d.byName[name]
	return desc, ok
}

// Label is the display label, falling back to the column name.
func (d Descriptors) Label(name string) string {
	if desc, ok := d.Lookup(name); ok && desc.Label != "" {
		return desc.Label
	}
	return name
}

// Description falls back to NotAvailable.
func (d Descriptors) Description(name string) string {
	if desc, ok := d.Lookup(name); ok && desc.Description != "" {
		return desc.Description
	}
	return NotAvailable
}

// Missing lists the columns without a descriptor, sorted.
func (d Descriptors) Missing(columns []string) []string {
	var missing []string
	for _, c := range columns {
		if _, ok := d.Lookup(c); !ok {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}

// All returns the descriptors in file order.
func (d Descriptors) All() []Descriptor {
	out := make([]Descriptor, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.byName[name])
	}
	return out
}

func (d Descriptors) Len() int { return len(d.order) }
