package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command, printing the build version and
// Go runtime info.
func NewVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cardlift version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("cardlift %s (%s %s/%s)\n", ver, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
