package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocer/internal/config"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("GROCER_TEST_STR", "  text ")
	t.Setenv("GROCER_TEST_BOOL", "off")
	t.Setenv("GROCER_TEST_FLOAT", "0.25")
	t.Setenv("GROCER_TEST_BAD", "nope")

	require.Equal(t, "text", EnvOrDefault("GROCER_TEST_STR", "x"))
	require.Equal(t, "x", EnvOrDefault("GROCER_TEST_MISSING", "x"))
	require.False(t, EnvBool("GROCER_TEST_BOOL", true))
	require.True(t, EnvBool("GROCER_TEST_BAD", true))
	require.InDelta(t, 0.25, EnvFloat("GROCER_TEST_FLOAT", 1), 1e-9)
	require.InDelta(t, 1.0, EnvFloat("GROCER_TEST_BAD", 1), 1e-9)
}

func TestStartTracing(t *testing.T) {
	cfg := &config.Config{AppEnv: "test"}

	t.Setenv("OBS_ENABLE_TRACING", "false")
	stop, enabled := StartTracing(context.Background(), cfg, "grocer-test", zerolog.Nop())
	require.False(t, enabled)
	stop()

	t.Setenv("OBS_ENABLE_TRACING", "true")
	t.Setenv("OBS_TRACING_EXPORTER", "zipkin")
	stop, enabled = StartTracing(context.Background(), cfg, "grocer-test", zerolog.Nop())
	require.False(t, enabled, "unknown exporters fall back to no tracing")
	stop()

	t.Setenv("OBS_TRACING_EXPORTER", "none")
	stop, enabled = StartTracing(context.Background(), cfg, "grocer-test", zerolog.Nop())
	require.False(t, enabled)
	stop()
}
