// Package metrics derives global descriptors and per-vertex scalars from an
// analyzed loop. Every descriptor is an independent pure function of the
// analysis; one failing descriptor is recorded as not computed and never
// prevents the others.
package metrics

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// NotComputed is the sentinel value of a descriptor that could not be
// evaluated. Test with math.IsNaN or DescriptorSet.Computed.
var NotComputed = math.NaN()

// DescriptorSet maps descriptor names to values. It is immutable once
// returned by Compute.
type DescriptorSet struct {
	names   []string
	values  map[string]float64
	reasons map[string]string
}

// Get returns the value and whether it was computed. Unknown names report
// NotComputed.
func (d *DescriptorSet) Get(name string) (float64, bool) {
	v, ok := d.values[name]
	if !ok {
		return NotComputed, false
	}
	return v, !math.IsNaN(v)
}

// Value returns the value or NotComputed.
func (d *DescriptorSet) Value(name string) float64 {
	v, _ := d.Get(name)
	return v
}

// Computed reports whether name holds a real value.
func (d *DescriptorSet) Computed(name string) bool {
	_, ok := d.Get(name)
	return ok
}

// Reason explains why name was not computed. It is empty for computed
// descriptors.
func (d *DescriptorSet) Reason(name string) string {
	return d.reasons[name]
}

// Names returns descriptor names in evaluation order.
func (d *DescriptorSet) Names() []string {
	return append([]string(nil), d.names...)
}

// Missing returns the names that were not computed, sorted.
func (d *DescriptorSet) Missing() []string {
	var out []string
	for _, n := range d.names {
		if !d.Computed(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the flat name to value mapping. Not-computed
// entries hold NotComputed.
func (d *DescriptorSet) Map() map[string]float64 {
	out := make(map[string]float64, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Reasons returns a copy of the failure reasons.
func (d *DescriptorSet) Reasons() map[string]string {
	out := make(map[string]string, len(d.reasons))
	for k, v := range d.reasons {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the descriptors as an object in evaluation order.
// Not-computed values are written as null.
func (d *DescriptorSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range d.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if v, ok := d.Get(n); ok {
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func newDescriptorSet(n int) *DescriptorSet {
	return &DescriptorSet{
		names:   make([]string, 0, n),
		values:  make(map[string]float64, n),
		reasons: make(map[string]string),
	}
}

func (d *DescriptorSet) has(name string) bool {
	_, ok := d.values[name]
	return ok
}

func (d *DescriptorSet) set(name string, v float64) {
	d.names = append(d.names, name)
	d.values[name] = v
}

func (d *DescriptorSet) fail(name, reason string) {
	d.names = append(d.names, name)
	d.values[name] = NotComputed
	d.reasons[name] = reason
}
