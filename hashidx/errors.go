package hashidx

import "errors"

// ErrOverflowUnresolvable is returned by SetOffset when a page is full and
// all of its nodes (and the incoming node) share the same 64-bit hash, or
// when a double would take the global depth past the width of the hash
// (64 bits) — no split or double can separate them.
var ErrOverflowUnresolvable = errors.New("hashidx: overflow unresolvable (hash collision exhausts directory depth)")

var errInvalidPageBuffer = errors.New("hashidx: page buffer must be exactly PageSize bytes")

var errCorruptPage = errors.New("hashidx: page has more nodes than MaxNodes allows")
