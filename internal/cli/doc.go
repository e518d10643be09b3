// Package cli implements the gavel command-line interface.
package cli
