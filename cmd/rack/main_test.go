package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/rack"
	"pipelined.dev/rack/mixer"
	"pipelined.dev/rack/osc"
	"pipelined.dev/rack/portaudio"
	"pipelined.dev/rack/wav"
)

func TestInit(t *testing.T) {
	//check if commands are registered
	assert.Equal(t, len(commands), 3)
}

func TestRun(t *testing.T) {
	tests := []struct {
		args     []string
		expected int
	}{
		{args: []string{"rack"}, expected: errorExitCode},
		{args: []string{"rack", "unknown"}, expected: errorExitCode},
		{args: []string{"rack", "render"}, expected: errorExitCode},
		{args: []string{"rack", "render", "-undefined"}, expected: errorExitCode},
		{args: []string{"rack", "render", "-format", "flac"}, expected: errorExitCode},
		{args: []string{"rack", "play"}, expected: errorExitCode},
		{args: []string{"rack", "play", "-patch", "missing.json", "-block", "0"}, expected: errorExitCode},
		{args: []string{"rack", "list"}, expected: successExitCode},
	}
	for _, test := range tests {
		c := config{args: test.args}
		assert.Equal(t, test.expected, c.run(), test.args)
	}
}

func TestList(t *testing.T) {
	var out bytes.Buffer
	cmd := &listCommand{out: &out}
	assert.NoError(t, cmd.Run())
	for _, slug := range []string{osc.Model, mixer.Model, wav.PlayerModel, wav.RecorderModel, portaudio.Model} {
		assert.Contains(t, out.String(), slug)
	}
}

const patch = `{
	"version": "1.0.0",
	"modules": [
		{"id": 0, "model": "osc.sine"},
		{"id": 1, "model": "osc.sine", "params": [{"id": 0, "value": 1}]},
		{"id": 2, "model": "mixer"},
		{"id": 3, "model": "wav.recorder"},
		{"id": 4, "model": "unknown"}
	],
	"cables": [
		{"outputModuleId": 0, "outputId": 0, "inputModuleId": 2, "inputId": 0},
		{"outputModuleId": 1, "outputId": 0, "inputModuleId": 2, "inputId": 1},
		{"outputModuleId": 2, "outputId": 0, "inputModuleId": 3, "inputId": 0},
		{"outputModuleId": 0, "outputId": 0, "inputModuleId": 3, "inputId": 1}
	]
}`

func TestRender(t *testing.T) {
	dir := t.TempDir()
	patchPath := filepath.Join(dir, "patch.json")
	settingsPath := filepath.Join(dir, "settings.yaml")
	out := filepath.Join(dir, "out.wav")
	assert.NoError(t, os.WriteFile(patchPath, []byte(patch), 0o644))
	assert.NoError(t, os.WriteFile(settingsPath, []byte("sampleRate: 48000\nthreadCount: 2\n"), 0o644))

	cmd := &renderCommand{
		patch:     patchPath,
		out:       out,
		settings:  settingsPath,
		frames:    1000,
		blockSize: 256,
		bitDepth:  16,
	}
	assert.NoError(t, cmd.Run())

	p := wav.NewPlayer()
	sampleRate, err := p.LoadFile(out)
	assert.NoError(t, err)
	assert.Equal(t, 48000, sampleRate)
	frames := 0
	peak := 0.0
	for !p.Done() {
		p.Process(rack.ProcessArgs{})
		if v := p.Outputs[1].Voltage(0); v > peak {
			peak = v
		}
		frames++
	}
	assert.Equal(t, 1000, frames)
	assert.InDelta(t, osc.Amplitude, peak, 0.1)
}

func TestRenderMP3(t *testing.T) {
	dir := t.TempDir()
	patchPath := filepath.Join(dir, "patch.json")
	assert.NoError(t, os.WriteFile(patchPath, []byte(patch), 0o644))

	out := filepath.Join(dir, "out.mp3")
	cmd := &renderCommand{
		patch:     patchPath,
		out:       out,
		format:    formatMp3,
		frames:    4410,
		blockSize: 512,
		bitRate:   128,
	}
	assert.NoError(t, cmd.Run())
	info, err := os.Stat(out)
	assert.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	cmd.bitRate = 0
	assert.Error(t, cmd.Run())
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, (&renderCommand{}).Run())

	empty := filepath.Join(dir, "empty.json")
	assert.NoError(t, os.WriteFile(empty, []byte(`{"modules": []}`), 0o644))
	cmd := &renderCommand{patch: empty, out: filepath.Join(dir, "out.wav"), frames: 10, blockSize: 10, bitDepth: 16}
	assert.Error(t, cmd.Run())

	cmd.patch = filepath.Join(dir, "missing.json")
	assert.ErrorIs(t, cmd.Run(), os.ErrNotExist)
}

func TestPlayErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, (&playCommand{}).Run())
	assert.Error(t, (&playCommand{patch: "patch.json", blockSize: portaudio.BufferFrames + 1}).Run())

	// patch without audio output fails before device is opened
	patchPath := filepath.Join(dir, "patch.json")
	assert.NoError(t, os.WriteFile(patchPath, []byte(patch), 0o644))
	err := (&playCommand{patch: patchPath, frames: 10, blockSize: 10}).Run()
	assert.ErrorContains(t, err, portaudio.Model)

	cmd := &playCommand{patch: filepath.Join(dir, "missing.json"), blockSize: 10}
	assert.ErrorIs(t, cmd.Run(), os.ErrNotExist)
}

func TestNumbered(t *testing.T) {
	assert.Equal(t, "out-1.wav", numbered("out.wav", 1))
	assert.Equal(t, "dir/out-0", numbered("dir/out", 0))
}
