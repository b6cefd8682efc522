// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

// stringTable interns strings for the compact backend.
//
// Every distinct string (qualified name, file path, display name,
// language) is stored exactly once and referenced thereafter by a uint32
// id. Id 0 is reserved for the empty string so that zero-valued records
// read back as empty fields.
//
// Thread Safety: NOT safe for concurrent use; writes happen during the
// single-writer build phase only.
type stringTable struct {
	index map[string]uint32
	strs  []string

	// bytes is the total length of interned string payloads, kept for
	// the memory-usage report.
	bytes int
}

func newStringTable() *stringTable {
	t := &stringTable{
		index: make(map[string]uint32),
		strs:  make([]string, 1), // id 0 = ""
	}
	t.index[""] = 0
	return t
}

// intern returns the id of s, adding it to the table on first sight.
func (t *stringTable) intern(s string) uint32 {
	if id, ok := t.index[s]; ok {
		return id
	}
	id := uint32(len(t.strs))
	t.strs = append(t.strs, s)
	t.index[s] = id
	t.bytes += len(s)
	return id
}

// lookup returns the string for an id. Out-of-range ids read as empty.
func (t *stringTable) lookup(id uint32) string {
	if int(id) >= len(t.strs) {
		return ""
	}
	return t.strs[id]
}

// id returns the id of s without interning. The second return is false
// when s has never been interned.
func (t *stringTable) id(s string) (uint32, bool) {
	id, ok := t.index[s]
	return id, ok
}

// count returns the number of unique interned strings, excluding the
// reserved empty string.
func (t *stringTable) count() int {
	return len(t.strs) - 1
}
