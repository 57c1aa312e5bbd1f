package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/monstore/cmd/inject"
	"github.com/ValentinKolb/monstore/cmd/maptool"
	"github.com/ValentinKolb/monstore/cmd/mkfs"
	"github.com/ValentinKolb/monstore/cmd/start"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "monstore",
		Short: "monitor map store for a distributed object storage cluster",
		Long: fmt.Sprintf(`monstore (v%s)

The monitor quorum subsystem of a distributed object storage cluster:
a durable, epoch-indexed store for the authoritative cluster maps
(monitor membership, storage-node membership, placement rules), with
bootstrap, disaster-recovery injection and mount-time validation.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of monstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("monstore v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(mkfs.MkfsCmd)
	RootCmd.AddCommand(inject.InjectCmd)
	RootCmd.AddCommand(start.StartCmd)
	RootCmd.AddCommand(maptool.MapToolCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
