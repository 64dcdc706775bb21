package analysis

import (
	"sort"

	"elfstat/internal/disasm"
)

// Tally maps a mnemonic to the number of times it was seen.
type Tally map[string]int

// MnemonicCount is one row of a sorted Tally.
type MnemonicCount struct {
	Mnemonic string `json:"mnemonic"`
	Count    int    `json:"count"`
}

func NewTally() Tally {
	return make(Tally)
}

// Add counts one occurrence of mnemonic. An empty mnemonic is ignored.
func (t Tally) Add(mnemonic string) {
	if mnemonic == "" {
		return
	}
	t[mnemonic]++
}

// Count adds every instruction of the stream that has a mnemonic.
func (t Tally) Count(stream disasm.Stream) {
	for _, in := range stream {
		t.Add(in.Op)
	}
}

// Sum returns the total number of counted instructions.
func (t Tally) Sum() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Sorted returns the tally ordered by descending count, ties broken by name.
func (t Tally) Sorted() []MnemonicCount {
	out := make([]MnemonicCount, 0, len(t))
	for m, c := range t {
		out = append(out, MnemonicCount{Mnemonic: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Mnemonic < out[j].Mnemonic
	})
	return out
}
