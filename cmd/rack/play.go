package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"pipelined.dev/rack/log"
	"pipelined.dev/rack/portaudio"
)

type playCommand struct {
	patch     string
	settings  string
	frames    int
	blockSize int
	threads   int
}

//Implement command interface
func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play patch through the default audio device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.patch, "patch", "", "patch json file to play (required)")
	fs.StringVar(&cmd.settings, "settings", "", "yaml settings file")
	fs.IntVar(&cmd.frames, "frames", 0, "number of samples to play, zero plays until interrupted")
	fs.IntVar(&cmd.blockSize, "block", 512, "number of samples per engine step")
	fs.IntVar(&cmd.threads, "threads", 0, "number of engine threads, overrides settings")
}

func (cmd *playCommand) Validate() error {
	var message string
	if cmd.patch == "" {
		message = message + "Missing -patch required flag\n"
	}
	if cmd.frames < 0 {
		message = message + "Flag -frames must not be negative\n"
	}
	if cmd.blockSize <= 0 || cmd.blockSize > portaudio.BufferFrames {
		message = message + fmt.Sprintf("Flag -block must be in range [1, %d]\n", portaudio.BufferFrames)
	}
	if message != "" {
		return errors.New(message)
	}
	return nil
}

func (cmd *playCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	e, m, err := loadEngine(cmd.patch, cmd.settings, cmd.threads)
	if err != nil {
		return err
	}
	defer e.Close()

	var out *portaudio.Output
	for _, module := range e.Modules() {
		if o, ok := module.(*portaudio.Output); ok {
			out = o
			break
		}
	}
	if out == nil {
		return fmt.Errorf("patch %s has no %s module", cmd.patch, portaudio.Model)
	}
	e.SetPrimaryModule(out)

	d, err := portaudio.Open(e.SampleRate(), cmd.blockSize)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	l := log.GetLogger().WithField("module", out.ID)
	l.Info("playback started")
	played := 0
	for cmd.frames == 0 || played < cmd.frames {
		if ctx.Err() != nil {
			break
		}
		frames := cmd.blockSize
		if left := cmd.frames - played; cmd.frames > 0 && left < frames {
			frames = left
		}
		e.Step(frames)
		if err := out.Drain(d.Write); err != nil {
			return err
		}
		played += frames
	}
	l.WithFields(logrus.Fields{"frames": played, "overruns": out.Overruns()}).Info("playback stopped")
	logMetrics(m)
	return nil
}
