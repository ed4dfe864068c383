package pipeline

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/sfsprep/config"
	"go.viam.com/sfsprep/framesource"
	"go.viam.com/sfsprep/framesource/fake"
	"go.viam.com/sfsprep/framesource/replay"
)

// NewDriver returns the frame source driver selected by conf.
func NewDriver(conf *config.Config, logger golog.Logger) (framesource.Driver, error) {
	switch conf.Source {
	case config.SourceFake:
		return fake.NewDriver(fake.Config{
			Serial:      conf.Serial,
			NumDevices:  1,
			DepthWidth:  conf.Fake.Width,
			DepthHeight: conf.Fake.Height,
			ColorWidth:  conf.Fake.ColorWidth,
			ColorHeight: conf.Fake.ColorHeight,
			FrameRate:   conf.Fake.FrameRate,
		}, logger), nil
	case config.SourceReplay:
		return replay.NewDriver(replay.Config{
			Prefix: conf.InputPrefix,
			Repeat: conf.ReplayRepeat,
		}, logger), nil
	default:
		return nil, errors.Errorf("unknown source %q", conf.Source)
	}
}

