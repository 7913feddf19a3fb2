package main

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"pipelined.dev/rack/log"
	"pipelined.dev/rack/mp3"
	"pipelined.dev/rack/signal"
	"pipelined.dev/rack/wav"
)

// Output formats of render.
const (
	formatWav = "wav"
	formatMp3 = "mp3"
)

type renderCommand struct {
	patch     string
	out       string
	settings  string
	format    string
	frames    int
	blockSize int
	threads   int
	bitDepth  int
	bitRate   int
}

//Implement command interface
func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Run patch offline and save recorders to wav or mp3"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.patch, "patch", "", "patch json file to render (required)")
	fs.StringVar(&cmd.out, "out", "", "output file (required)")
	fs.StringVar(&cmd.settings, "settings", "", "yaml settings file")
	fs.StringVar(&cmd.format, "format", formatWav, "output format: wav or mp3")
	fs.IntVar(&cmd.frames, "frames", 44100, "number of samples to render")
	fs.IntVar(&cmd.blockSize, "block", 512, "number of samples per engine step")
	fs.IntVar(&cmd.threads, "threads", 0, "number of engine threads, overrides settings")
	fs.IntVar(&cmd.bitDepth, "bitdepth", 16, "bit depth of wav file")
	fs.IntVar(&cmd.bitRate, "bitrate", mp3.DefaultBitRate, "bit rate of mp3 file, kbps")
}

func (cmd *renderCommand) Validate() error {
	var message string
	if cmd.patch == "" {
		message = message + "Missing -patch required flag\n"
	}
	if cmd.out == "" {
		message = message + "Missing -out required flag\n"
	}
	if cmd.format == "" {
		cmd.format = formatWav
	}
	if cmd.format != formatWav && cmd.format != formatMp3 {
		message = message + fmt.Sprintf("Unsupported -format %s\n", cmd.format)
	}
	if cmd.frames <= 0 {
		message = message + "Flag -frames must be positive\n"
	}
	if cmd.blockSize <= 0 {
		message = message + "Flag -block must be positive\n"
	}
	if cmd.format == formatMp3 && cmd.bitRate <= 0 {
		message = message + "Flag -bitrate must be positive\n"
	}
	if message != "" {
		return errors.New(message)
	}
	return nil
}

func (cmd *renderCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	e, m, err := loadEngine(cmd.patch, cmd.settings, cmd.threads)
	if err != nil {
		return err
	}
	defer e.Close()

	var recorders []*wav.Recorder
	for _, module := range e.Modules() {
		if r, ok := module.(*wav.Recorder); ok {
			recorders = append(recorders, r)
		}
	}
	if len(recorders) == 0 {
		return fmt.Errorf("patch %s has no %s modules", cmd.patch, wav.RecorderModel)
	}

	for rendered := 0; rendered < cmd.frames; rendered += cmd.blockSize {
		frames := cmd.blockSize
		if left := cmd.frames - rendered; left < frames {
			frames = left
		}
		e.Step(frames)
	}

	sampleRate := int(e.SampleRate())
	for i, r := range recorders {
		path := cmd.out
		if len(recorders) > 1 {
			path = numbered(cmd.out, i)
		}
		if err := cmd.save(r, path, sampleRate); err != nil {
			return err
		}
		log.GetLogger().WithFields(logrus.Fields{"module": r.ID, "path": path, "frames": r.Frames()}).Info("recording saved")
	}
	logMetrics(m)
	return nil
}

// save writes recording in the format of command.
func (cmd *renderCommand) save(r *wav.Recorder, path string, sampleRate int) error {
	if cmd.format == formatMp3 {
		return mp3.EncodeFile(path, r.Samples(), sampleRate, cmd.bitRate, mp3.DefaultQuality)
	}
	return r.SaveFile(path, sampleRate, signal.BitDepth(cmd.bitDepth))
}

// numbered inserts index before extension of the path.
func numbered(path string, i int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i, ext)
}
