// Package federation holds the hub's view of the federation: which
// relying parties, identity providers, countries and matching services
// exist, whether each is enabled, and the trust material they sign
// with. The Registry is consulted by controllers before any transition
// that depends on an external party's standing.
package federation
