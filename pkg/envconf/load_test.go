package envconf

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nestedConf struct {
	DSN     string        `env:"TEST_ENVCONF_DSN"`
	Timeout time.Duration `env:"TEST_ENVCONF_TIMEOUT" envDefault:"3s"`
}

type testConf struct {
	Port     uint16     `env:"TEST_ENVCONF_PORT" envDefault:"8080"`
	Level    slog.Level `env:"TEST_ENVCONF_LEVEL" envDefault:"info"`
	Brokers  []string   `env:"TEST_ENVCONF_BROKERS" envDefault:""`
	Limits   []int      `env:"TEST_ENVCONF_LIMITS" envDefault:"1,2"`
	Debug    *bool      `env:"TEST_ENVCONF_DEBUG" envDefault:"false"`
	Ignored  string     `env:"-"`
	Nested   nestedConf
	NestedP  *nestedConf
	internal string
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("TEST_ENVCONF_DSN", "postgres://x")
	t.Setenv("TEST_ENVCONF_LEVEL", "DEBUG")
	t.Setenv("TEST_ENVCONF_BROKERS", "kafka-1:9092, kafka-2:9092,")

	var cfg testConf

	require.NoError(t, Load(&cfg))

	assert.Equal(t, uint16(8080), cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, []int{1, 2}, cfg.Limits)
	require.NotNil(t, cfg.Debug)
	assert.False(t, *cfg.Debug)
	assert.Equal(t, "postgres://x", cfg.Nested.DSN)
	assert.Equal(t, 3*time.Second, cfg.Nested.Timeout)
	require.NotNil(t, cfg.NestedP)
	assert.Equal(t, "postgres://x", cfg.NestedP.DSN)
	assert.Empty(t, cfg.Ignored)
	assert.Empty(t, cfg.internal)
}

func TestLoad_MissingRequired(t *testing.T) {
	var cfg testConf

	err := Load(&cfg)
	require.ErrorIs(t, err, ErrMissingRequired)
	assert.Contains(t, err.Error(), "TEST_ENVCONF_DSN")
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("TEST_ENVCONF_DSN", "x")
	t.Setenv("TEST_ENVCONF_PORT", "not-a-port")

	var cfg testConf

	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_ENVCONF_PORT")
}

func TestLoad_InvalidDestination(t *testing.T) {
	t.Parallel()

	var notStruct int

	tests := []struct {
		name string
		dst  any
	}{
		{name: "nil", dst: nil},
		{name: "non_pointer", dst: testConf{}},
		{name: "pointer_to_non_struct", dst: &notStruct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Error(t, Load(tt.dst))
		})
	}
}

func TestLoad_UnsupportedType(t *testing.T) {
	t.Setenv("TEST_ENVCONF_MAP", "a=b")

	var cfg struct {
		M map[string]string `env:"TEST_ENVCONF_MAP"`
	}

	require.ErrorIs(t, Load(&cfg), ErrUnsupportedType)
}
