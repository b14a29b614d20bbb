// Package session holds the per-transaction session core: the keyed
// state store, the transition action that is the only mutation path,
// the per-variant controllers, and the repository that performs
// timeout-aware, type-checked state access.
package session
