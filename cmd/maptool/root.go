package maptool

import (
	"fmt"
	"os"
	"strings"

	cmdUtil "github.com/ValentinKolb/monstore/cmd/util"
	"github.com/ValentinKolb/monstore/lib/cmap"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// MapToolCommands represents the maptool command group. It authors and
// inspects the seed map blobs consumed by mkfs; the blobs use the same wire
// format the store persists.
var MapToolCommands = &cobra.Command{
	Use:   "maptool",
	Short: "Author and inspect cluster map blobs",
}

func init() {
	// Initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// Add subcommands
	MapToolCommands.AddCommand(createCmd)
	MapToolCommands.AddCommand(createOSDCmd)
	MapToolCommands.AddCommand(printCmd)
}

// --------------------------------------------------------------------------
// maptool create
// --------------------------------------------------------------------------

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a seed membership map blob",
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().String("out", "", cmdUtil.WrapString("Output file for the blob"))
	_ = createCmd.MarkFlagRequired("out")

	createCmd.Flags().StringSlice("add", nil, cmdUtil.WrapString("Monitor to add, as NAME=ADDRESS (repeatable, e.g. --add a=10.0.0.1:6789)"))
	createCmd.Flags().String("fsid", "", cmdUtil.WrapString("Cluster identity to use; a fresh one is generated if empty"))
}

func runCreate(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	m := cmap.NewMonMap()
	m.SetEpoch(1)

	if fsid := viper.GetString("fsid"); fsid != "" {
		parsed, err := uuid.Parse(fsid)
		if err != nil {
			return fmt.Errorf("invalid fsid %s: %v", fsid, err)
		}
		m.FSID = parsed
	}

	for _, entry := range viper.GetStringSlice("add") {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid monitor %s (expected NAME=ADDRESS)", entry)
		}
		if err := m.Add(parts[0], parts[1]); err != nil {
			return err
		}
	}
	if m.Size() == 0 {
		return fmt.Errorf("a membership map needs at least one monitor (use --add)")
	}

	out := viper.GetString("out")
	if err := os.WriteFile(out, m.Encode(), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %v", out, err)
	}

	fmt.Printf("wrote membership map epoch %d with %d monitor(s), fsid %s\n", m.Epoch(), m.Size(), m.FSID)
	return nil
}

// --------------------------------------------------------------------------
// maptool createosd
// --------------------------------------------------------------------------

var createOSDCmd = &cobra.Command{
	Use:   "createosd",
	Short: "Create a seed resource map blob",
	RunE:  runCreateOSD,
}

func init() {
	createOSDCmd.Flags().String("out", "", cmdUtil.WrapString("Output file for the blob"))
	_ = createOSDCmd.MarkFlagRequired("out")

	createOSDCmd.Flags().Int("num-devices", 0, cmdUtil.WrapString("Number of storage nodes to pre-create (ids 0..n-1, all down+out)"))
	createOSDCmd.Flags().String("crush", "", cmdUtil.WrapString("Optional file holding the placement-rules payload to embed verbatim"))
	createOSDCmd.Flags().String("fsid", "", cmdUtil.WrapString("Cluster identity to use; a fresh one is generated if empty"))
}

func runCreateOSD(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	m := &cmap.OSDMap{FSID: uuid.New()}
	m.SetEpoch(1)

	if fsid := viper.GetString("fsid"); fsid != "" {
		parsed, err := uuid.Parse(fsid)
		if err != nil {
			return fmt.Errorf("invalid fsid %s: %v", fsid, err)
		}
		m.FSID = parsed
	}

	for i := 0; i < viper.GetInt("num-devices"); i++ {
		m.Devices = append(m.Devices, cmap.Device{ID: uint32(i)})
	}

	if crushFile := viper.GetString("crush"); crushFile != "" {
		crush, err := os.ReadFile(crushFile)
		if err != nil {
			return fmt.Errorf("cannot read placement rules from %s: %v", crushFile, err)
		}
		m.CrushBlob = crush
	}

	out := viper.GetString("out")
	if err := os.WriteFile(out, m.Encode(), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %v", out, err)
	}

	fmt.Printf("wrote resource map epoch %d with %d device(s)\n", m.Epoch(), m.Size())
	return nil
}

// --------------------------------------------------------------------------
// maptool print
// --------------------------------------------------------------------------

var printCmd = &cobra.Command{
	Use:   "print <file>",
	Short: "Decode and print a map blob",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrint,
}

func runPrint(_ *cobra.Command, args []string) error {
	blob, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot read %s: %v", args[0], err)
	}

	// a blob is self-describing; try both in-scope map types
	monmap := &cmap.MonMap{}
	if err := monmap.Decode(blob); err == nil {
		fmt.Printf("membership map epoch %d\nfsid %s\n", monmap.Epoch(), monmap.FSID)
		for rank, m := range monmap.Monitors {
			fmt.Printf("%d: mon.%s %s\n", rank, m.Name, m.Addr)
		}
		return nil
	}

	osdmap := &cmap.OSDMap{}
	if err := osdmap.Decode(blob); err == nil {
		fmt.Printf("resource map epoch %d\nfsid %s\n", osdmap.Epoch(), osdmap.FSID)
		for _, d := range osdmap.Devices {
			fmt.Printf("osd.%d %s\n", d.ID, d.State)
		}
		fmt.Printf("placement rules: %d bytes\n", len(osdmap.CrushBlob))
		return nil
	}

	return fmt.Errorf("%s is not a decodable cluster map blob", args[0])
}
