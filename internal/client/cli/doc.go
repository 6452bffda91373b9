// Package cli provides the interactive GophNotes command-line client.
//
// NewApp wires configuration, the local store, the remote backend, the sync
// queue and the domain services. App.Run starts the background workers
// (connectivity monitor, backup scheduler, metrics endpoint) and the REPL,
// and returns when the user exits or the context is cancelled.
//
// Ids may be abbreviated to any unique prefix of at least four characters.
package cli
