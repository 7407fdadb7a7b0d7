// Package session keeps one blueprint compiler per conversation.
//
// A Manager hands out sessions keyed by prefixed ULIDs, serialises the
// inputs of each session and enforces the round ceiling that stops a
// conversation from looping forever on requirements it cannot resolve.
// Sessions can be saved to a Store and restored later, possibly by a
// different process.
package session
