// Package idgen produces instance ids and inspection access codes. Both are
// function variables so tests can make them deterministic.
package idgen
