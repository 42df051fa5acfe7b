// Package commands implements the archivrc subcommands.
package commands

// Opts carries flags shared by every subcommand.
type Opts struct {
	// ConfigFile is the policy file path.
	ConfigFile string
	// Debug enables debug logging.
	Debug bool
}
