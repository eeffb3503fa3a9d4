package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// Mode describes how a chain's block source delivers new heights.
type Mode string

const (
	ModePush Mode = "push"
	ModePoll Mode = "poll"
)

func (m Mode) String() string {
	return string(m)
}

// Scope separates checkpoints and block rows of independent watchers on the
// same chain.
type Scope string

const (
	ScopeMessages Scope = "vaa"
	ScopeNTT      Scope = "ntt"
)

func (s Scope) String() string {
	return string(s)
}

// ParseChainID accepts either a numeric wormhole chain id or a chain name.
func ParseChainID(s string) (vaa.ChainID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return vaa.ChainIDUnset, fmt.Errorf("empty chain id")
	}
	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		return vaa.ChainID(n), nil
	}
	id, err := vaa.ChainIDFromString(strings.ToLower(s))
	if err != nil {
		return vaa.ChainIDUnset, fmt.Errorf("parse chain id %q: %w", s, err)
	}
	return id, nil
}

// ChainLabel is the metrics/log label for a chain.
func ChainLabel(id vaa.ChainID) string {
	return strconv.FormatUint(uint64(id), 10)
}
