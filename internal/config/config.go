// Package config wires Viper configuration for the CLI.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mbify/internal/dirs"
)

// Init wires Viper with config paths, env, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	// Setup config search path
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		_ = dirs.Ensure(cfgDir)
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: MBIFY_*
	viper.SetEnvPrefix("MBIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Bind root persistent flags to Viper keys
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("overhead", root.PersistentFlags().Lookup("overhead"))
	_ = viper.BindPFlag("min_video_kbps", root.PersistentFlags().Lookup("min-video-kbps"))
	_ = viper.BindPFlag("cpu_priority", root.PersistentFlags().Lookup("cpu-priority"))
	_ = viper.BindPFlag("ffmpeg_path", root.PersistentFlags().Lookup("ffmpeg-path"))
	_ = viper.BindPFlag("ffprobe_path", root.PersistentFlags().Lookup("ffprobe-path"))

	// Read config file if present (ignore not found)
	_ = viper.ReadInConfig()

	return nil
}
