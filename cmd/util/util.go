package util

import (
	"strings"

	"github.com/ValentinKolb/monstore/lib/kvstore"
	"github.com/ValentinKolb/monstore/lib/kvstore/engines/pebbledb"
	"github.com/ValentinKolb/monstore/lib/mon"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from environment variables. The
// format of the environment variables is MONSTORE_<flag> (e.g.
// MONSTORE_MON_DATA=/var/lib/monstore/mon.a).
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("monstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupStoreFlags adds the flags shared by every command that touches a
// monitor store.
func SetupStoreFlags(cmd *cobra.Command) {
	key := "mon-data"
	cmd.PersistentFlags().String(key, "", WrapString("Path to the monitor store directory"))
	_ = cmd.MarkPersistentFlagRequired(key)

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// MonConfigFromFlags builds the explicit monitor configuration from the
// bound flags. Components receive this struct by reference; none of them
// read viper or any other ambient state directly.
func MonConfigFromFlags() *mon.Config {
	return &mon.Config{
		Path:     viper.GetString("mon-data"),
		Name:     viper.GetString("name"),
		LogLevel: viper.GetString("log-level"),
	}
}

// StoreFactory returns the engine factory for the configured store path.
func StoreFactory(cfg *mon.Config) kvstore.StoreFactory {
	return func() kvstore.IKVStore {
		return pebbledb.New(pebbledb.Config{Path: cfg.Path})
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
