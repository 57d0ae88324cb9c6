package cmd

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/config"
)

func TestConfigureLoggingAppliesConfiguredLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configureLogging(config.Config{LogLevel: "debug", LogFormat: "json"})
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	configureLogging(config.Config{LogLevel: "warn", LogFormat: "console"})
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestConfigureLoggingFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configureLogging(config.Config{LogLevel: "shouting", LogFormat: "json"})
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
