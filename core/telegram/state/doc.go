// Package state keeps per-user conversation data in memory.
//
// Every read or write of a user's value happens inside Store.Do, which holds
// that user's lock for the duration of the callback. Different users never
// block each other except for the short map-level critical sections.
package state
