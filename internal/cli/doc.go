// Package cli implements the t3vo command line: one-shot cobra commands and
// an interactive shell sharing the same App.
//
// The passphrase is read from the T3VO_PASSPHRASE environment variable or
// prompted for without echo. It selects the database; a passphrase that was
// never used before creates a new, empty one.
package cli
