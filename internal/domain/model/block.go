package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BlockKey identifies a scanned block. Ordering uses Number only; Timestamp
// is advisory.
type BlockKey struct {
	Number    uint64
	Timestamp string
}

func NewBlockKey(number uint64, ts time.Time) BlockKey {
	return BlockKey{Number: number, Timestamp: ts.UTC().Format(time.RFC3339)}
}

func (k BlockKey) String() string {
	return strconv.FormatUint(k.Number, 10) + "/" + k.Timestamp
}

// ParseBlockKey parses the "<number>/<timestamp>" form.
func ParseBlockKey(s string) (BlockKey, error) {
	num, ts, ok := strings.Cut(s, "/")
	if !ok {
		return BlockKey{}, fmt.Errorf("invalid block key %q", s)
	}
	n, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return BlockKey{}, fmt.Errorf("invalid block number in key %q: %w", s, err)
	}
	return BlockKey{Number: n, Timestamp: ts}, nil
}

// VaasByBlock maps scanned blocks to the messages observed in them. An empty
// list means the block was scanned and nothing was found.
type VaasByBlock map[BlockKey][]VaaKey

// SortedKeys returns the block keys in ascending block order.
func (v VaasByBlock) SortedKeys() []BlockKey {
	keys := make([]BlockKey, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Number < keys[j].Number })
	return keys
}

// LastKey returns the highest block key, or false when v is empty.
func (v VaasByBlock) LastKey() (BlockKey, bool) {
	var last BlockKey
	found := false
	for k := range v {
		if !found || k.Number > last.Number {
			last = k
			found = true
		}
	}
	return last, found
}

// WithoutEmpty drops blocks with no messages except the highest one, which
// anchors resumption.
func (v VaasByBlock) WithoutEmpty() VaasByBlock {
	last, ok := v.LastKey()
	out := make(VaasByBlock, len(v))
	for k, keys := range v {
		if len(keys) > 0 || (ok && k == last) {
			out[k] = keys
		}
	}
	return out
}

// MessageCount returns the total number of messages across all blocks.
func (v VaasByBlock) MessageCount() int {
	n := 0
	for _, keys := range v {
		n += len(keys)
	}
	return n
}
