package audioengine

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/framecue/internal/infra/config"
)

// FromConfig creates an engine from configuration.
func FromConfig(cfg config.EngineConfig) (*Engine, error) {
	factory, err := outputFactory(cfg.Output)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create output (type %s)", cfg.Output.Type)
	}

	engine, err := New(Config{
		SampleRate:      cfg.SampleRate,
		BufferSize:      cfg.BufferSize,
		ResampleQuality: cfg.ResampleQuality,
	}, factory)
	if err != nil {
		return nil, err
	}

	zlog.Info().Msgf("audio engine configured: output=%s sample_rate=%d buffer_size=%d resample_quality=%d",
		cfg.Output.Type, cfg.SampleRate, cfg.BufferSize, cfg.ResampleQuality)
	return engine, nil
}

func outputFactory(cfg config.OutputConfig) (OutputFactory, error) {
	zlog.Debug().Msgf("creating audio output: type=%s settings=%+v", cfg.Type, cfg.Settings)
	switch cfg.Type {
	case config.OutputSpeaker:
		return func() (Output, error) {
			return NewSpeakerOutput(), nil
		}, nil

	case config.OutputNull:
		settings, err := decodeNullSettings(cfg.Settings)
		if err != nil {
			return nil, err
		}
		return func() (Output, error) {
			return NewNullOutput(settings), nil
		}, nil

	default:
		return nil, errors.Newf("unsupported output type: %s", cfg.Type)
	}
}

func decodeNullSettings(raw map[string]any) (NullSettings, error) {
	var settings NullSettings
	if err := mapstructure.Decode(raw, &settings); err != nil {
		return settings, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&settings); err != nil {
		return settings, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(settings); err != nil {
		return settings, errors.Wrap(err, "validation failed")
	}
	return settings, nil
}
