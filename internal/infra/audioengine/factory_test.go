package audioengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/framecue/internal/infra/config"
)

func TestDecodeNullSettings(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    NullSettings
		wantErr bool
	}{
		{
			name: "empty settings use defaults",
			raw:  nil,
			want: NullSettings{Speed: 1},
		},
		{
			name: "manual",
			raw:  map[string]any{"manual": true},
			want: NullSettings{Manual: true, Speed: 1},
		},
		{
			name: "integer speed",
			raw:  map[string]any{"speed": 4},
			want: NullSettings{Speed: 4},
		},
		{
			name:    "speed out of range",
			raw:     map[string]any{"speed": 100.0},
			wantErr: true,
		},
		{
			name:    "wrong type",
			raw:     map[string]any{"manual": "sometimes"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeNullSettings(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EngineConfig
		wantErr bool
	}{
		{
			name: "null output",
			cfg: config.EngineConfig{
				SampleRate:      44100,
				BufferSize:      512,
				ResampleQuality: 2,
				Output:          config.OutputConfig{Type: config.OutputNull, Settings: map[string]any{"manual": true}},
			},
		},
		{
			name: "speaker output",
			cfg: config.EngineConfig{
				SampleRate: 48000,
				BufferSize: 1024,
				Output:     config.OutputConfig{Type: config.OutputSpeaker},
			},
		},
		{
			name: "unsupported output",
			cfg: config.EngineConfig{
				SampleRate: 48000,
				BufferSize: 1024,
				Output:     config.OutputConfig{Type: "alsa"},
			},
			wantErr: true,
		},
		{
			name: "invalid null settings",
			cfg: config.EngineConfig{
				SampleRate: 48000,
				BufferSize: 1024,
				Output:     config.OutputConfig{Type: config.OutputNull, Settings: map[string]any{"speed": -1}},
			},
			wantErr: true,
		},
		{
			name: "invalid buffer size",
			cfg: config.EngineConfig{
				SampleRate: 48000,
				Output:     config.OutputConfig{Type: config.OutputNull},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := FromConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.SampleRate, engine.Config().SampleRate)
			assert.Equal(t, tt.cfg.BufferSize, engine.Config().BufferSize)
		})
	}
}

func TestFromConfig_NullOutputContext(t *testing.T) {
	engine, err := FromConfig(config.EngineConfig{
		SampleRate: 48000,
		BufferSize: 256,
		Output:     config.OutputConfig{Type: config.OutputNull, Settings: map[string]any{"manual": true}},
	})
	require.NoError(t, err)

	c, err := engine.NewContext()
	require.NoError(t, err)
	ctx := c.(*Context)
	require.NoError(t, ctx.Init(2))

	out, ok := ctx.output.(*NullOutput)
	require.True(t, ok)
	out.Pump(512)

	clock, err := ctx.Clock()
	require.NoError(t, err)
	assert.Equal(t, uint64(512), clock)
	require.NoError(t, ctx.Release())
}
