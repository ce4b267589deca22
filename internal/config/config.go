// Package config loads CLI configuration the way
// _examples/denisvmedia-inventario's cmd/inventario binds it: cobra
// flags registered per-command, bound into a package-level viper
// instance so a flag can also be set via environment variable or an
// optional config file, with the flag value always taking precedence.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "POLYGEN"

// Init wires viper's environment lookup: POLYGEN_SCHEMA_PATH satisfies
// --schema-path, POLYGEN_OUTPUT_DIR satisfies --output-dir, and so on.
func Init(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return err
		}
	}
	return nil
}

// BindString registers a string flag on cmd and binds it into viper
// under the same name, so String(name) resolves flag > env > config
// file > fall back to def.
func BindString(cmd *cobra.Command, name, def, usage string) {
	cmd.Flags().String(name, def, usage)
	bindOnRun(cmd, name)
}

// BindBool registers a bool flag the same way BindString does.
func BindBool(cmd *cobra.Command, name string, def bool, usage string) {
	cmd.Flags().Bool(name, def, usage)
	bindOnRun(cmd, name)
}

// bindOnRun binds cmd's flag into viper only when cmd itself runs, so two
// subcommands registering a flag of the same name each read their own.
func bindOnRun(cmd *cobra.Command, name string) {
	prev := cmd.PreRunE
	cmd.PreRunE = func(c *cobra.Command, args []string) error {
		if err := viper.BindPFlag(name, c.Flags().Lookup(name)); err != nil {
			return err
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

// String resolves a bound flag's value.
func String(name string) string { return viper.GetString(name) }

// Bool resolves a bound flag's value.
func Bool(name string) bool { return viper.GetBool(name) }
