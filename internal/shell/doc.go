// Package shell runs external tools (git, the package manager, the
// runtime) on a search path extended with the usual install locations,
// capturing their output for diagnostics.
package shell
