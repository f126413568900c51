// Package cmd assembles the clinictl command tree.
package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/clinicore/clinicore/internal/clinictl/cmd/chat"
	"github.com/clinicore/clinicore/pkg/version"
)

// NewClinictlCommand creates the `clinictl` root command.
func NewClinictlCommand() *cobra.Command {
	cmds := &cobra.Command{
		Use:   "clinictl",
		Short: "clinictl talks to a clinicored gateway",
		Long: heredoc.Doc(`
			clinictl is the terminal client for the clinicore gateway.

			It dispatches chat turns to a running clinicored instance and
			follows their event streams, including specialist consultations
			and tool invocations issued from the conversation.`),
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmds.AddCommand(chat.NewCmdChat())
	cmds.AddCommand(newVersionCommand())

	return cmds
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			fmt.Printf("clinictl %s (%s) built %s with %s for %s\n",
				info.GitVersion, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
		},
	}
}
