package inject

import (
	"fmt"
	"os"

	cmdUtil "github.com/ValentinKolb/monstore/cmd/util"
	"github.com/ValentinKolb/monstore/lib/mon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var InjectCmd = &cobra.Command{
	Use:     "inject",
	Short:   "Force-install a new membership map epoch",
	Long:    `Force-install a new epoch of the membership map, bypassing the consensus layer. Disaster-recovery tool: the monitor process must be stopped while this runs. The new epoch is computed from the store's last committed epoch; the epoch inside the supplied blob is ignored.`,
	PreRunE: processConfig,
	RunE:    run,
}

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupStoreFlags(InjectCmd)

	key := "monmap"
	InjectCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path to the membership map blob to install"))
	_ = InjectCmd.MarkPersistentFlagRequired(key)
}

// processConfig binds the flags and initializes logging
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	cmdUtil.InitLoggers(viper.GetString("log-level"))
	return nil
}

// run installs the map
func run(_ *cobra.Command, _ []string) error {
	cfg := cmdUtil.MonConfigFromFlags()

	blob, err := os.ReadFile(viper.GetString("monmap"))
	if err != nil {
		return fmt.Errorf("unable to read membership map from %s: %v", viper.GetString("monmap"), err)
	}

	old, next, err := mon.Inject(cfg, cmdUtil.StoreFactory(cfg), blob)
	if err != nil {
		return err
	}

	fmt.Printf("last committed monmap epoch is %d, injected map is %d\n", old, next)
	fmt.Println("done.")
	return nil
}
