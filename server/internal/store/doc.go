// Package store holds the process-wide object collection. It is an
// insertion-ordered, mutex-guarded list of arbitrary JSON objects, each keyed
// by a unique string "uuid" field. Nothing is persisted.
package store
