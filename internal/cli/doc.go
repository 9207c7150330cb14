// Package cli assembles the cardlift command tree: the root command with
// config resolution and logging setup, the upload command driving a batch
// session against the gallery, and the config and version subcommands.
package cli
