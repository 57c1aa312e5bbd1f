package start

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/monstore/cmd/util"
	"github.com/ValentinKolb/monstore/lib/mon"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logger.GetLogger("mon")

var StartCmd = &cobra.Command{
	Use:     "start",
	Short:   "Start the monitor",
	Long:    `Start the monitor on an initialized store. The store is mounted and validated (identity marker, feature compatibility, latest committed maps); any validation failure is fatal and reported with a single diagnostic line. On success the process runs until SIGINT or SIGTERM.`,
	PreRunE: processConfig,
	RunE:    run,
}

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupStoreFlags(StartCmd)

	key := "name"
	StartCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Name of this monitor in the membership map (e.g. 'a')"))
	_ = StartCmd.MarkPersistentFlagRequired(key)

	key = "metrics-endpoint"
	StartCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address to serve Prometheus metrics on (e.g. 127.0.0.1:9283); disabled if empty"))
}

// processConfig binds the flags and initializes logging
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	cmdUtil.InitLoggers(viper.GetString("log-level"))
	return nil
}

// run validates the store and runs the monitor until signalled
func run(_ *cobra.Command, _ []string) error {
	cfg := cmdUtil.MonConfigFromFlags()

	monitor, err := mon.NewValidator(cfg, cmdUtil.StoreFactory(cfg)).Run()
	if err != nil {
		return err
	}
	defer func() { _ = monitor.Close() }()

	// optional metrics endpoint
	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		go serveMetrics(endpoint)
	}

	// the consensus and messaging layers drive all further map commits;
	// here the process just waits for its shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Infof("mon.%s shutting down on signal %v", cfg.Name, s)
	return nil
}

// serveMetrics exposes the process metrics in Prometheus text format
func serveMetrics(endpoint string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	if err := http.ListenAndServe(endpoint, mux); err != nil {
		log.Errorf("metrics endpoint failed: %v", err)
	}
}
