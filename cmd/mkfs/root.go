package mkfs

import (
	"fmt"
	"os"

	cmdUtil "github.com/ValentinKolb/monstore/cmd/util"
	"github.com/ValentinKolb/monstore/lib/mon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var MkfsCmd = &cobra.Command{
	Use:     "mkfs",
	Short:   "Build a fresh monitor store",
	Long:    `Build a fresh monitor store from a seed membership map and a seed resource map. The target directory must not already contain an initialized store. Seeds are authored with the maptool command.`,
	PreRunE: processConfig,
	RunE:    run,
}

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupStoreFlags(MkfsCmd)

	key := "monmap"
	MkfsCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path to the seed membership map blob"))
	_ = MkfsCmd.MarkPersistentFlagRequired(key)

	key = "osdmap"
	MkfsCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path to the seed resource map blob"))
	_ = MkfsCmd.MarkPersistentFlagRequired(key)

	key = "name"
	MkfsCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Name of this monitor in the membership map (e.g. 'a'); only used to warn early if the seed does not list it"))
}

// processConfig binds the flags and initializes logging
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	cmdUtil.InitLoggers(viper.GetString("log-level"))
	return nil
}

// run seeds the store
func run(_ *cobra.Command, _ []string) error {
	cfg := cmdUtil.MonConfigFromFlags()

	monmapBlob, err := os.ReadFile(viper.GetString("monmap"))
	if err != nil {
		return fmt.Errorf("error reading membership seed: %v", err)
	}
	osdmapBlob, err := os.ReadFile(viper.GetString("osdmap"))
	if err != nil {
		return fmt.Errorf("error reading resource seed: %v", err)
	}

	if err := mon.Mkfs(cfg, cmdUtil.StoreFactory(cfg), monmapBlob, osdmapBlob); err != nil {
		return err
	}

	fmt.Printf("created monitor store at %s\n", cfg.Path)
	return nil
}
