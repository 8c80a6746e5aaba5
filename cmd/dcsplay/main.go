// Command dcsplay loads a DCS sound-board ROM set, boots the decoder,
// triggers a single track, and renders the resulting audio to a WAV file
// (or, in a future extension, a live audio device).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/mjr/dcsexplorer-go/cmd/internal/romload"
	"github.com/mjr/dcsexplorer-go/internal/boot"
	"github.com/mjr/dcsexplorer-go/internal/catalog"
	"github.com/mjr/dcsexplorer-go/internal/config"
	"github.com/mjr/dcsexplorer-go/internal/dcslog"
	"github.com/mjr/dcsexplorer-go/internal/engine"
	"github.com/mjr/dcsexplorer-go/internal/host"
	"github.com/mjr/dcsexplorer-go/internal/ident"
	"github.com/mjr/dcsexplorer-go/internal/streamdec"
	"github.com/mjr/dcsexplorer-go/internal/wav"
)

// sampleRate is the DCS boards' fixed DAC rate (spec §4.8's hard-boot and
// bong timings are both stated in samples at this rate).
const sampleRate = 31250

// defaultPlaySeconds bounds rendering when a track's static time estimate
// is unavailable (e.g. it loops forever, or no -track was given and we're
// only exercising boot).
const defaultPlaySeconds = 10

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("dcsplay", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - play a DCS sound-board track to a WAV file\n", "dcsplay")
		fmt.Fprintf(os.Stderr, "\nUsage: dcsplay -rom <dir-or-zip> -track <n> -output <file.wav> [options]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfgFile, _ := fs.GetString("config")
	cfg, err := config.Load(cfgFile, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.ROMPath == "" {
		fs.Usage()
		return 2
	}
	if err := dcslog.Init(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	set, err := romload.Load(cfg.ROMPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	info, err := ident.Identify(set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dcsplay: identification failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "dcsplay: %s\n", info)

	cat := catalog.New(set, info.HW.ROMVariant(), info.OS.UsesWideWriteDataPort(), info.CatalogOffset)
	cat.SetStreamFrames(func(linearAddr uint32) int {
		return streamdec.FrameCount(cat.ROMPointer(linearAddr))
	})

	if cfg.Output == "device" {
		fmt.Fprintln(os.Stderr, "dcsplay: live audio device output is not supported; pass -output <file.wav>")
		return 2
	}
	f, err := os.Create(cfg.Output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer f.Close()
	wr, err := wav.NewWriter(f, sampleRate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	decoder := streamdec.NewStub()
	hostPort := host.NewBuffering()
	eng := engine.New(cat, info.NumChannels, info.NominalVersion, decoder, hostPort)
	eng.SetDefaultVolume(cfg.Volume)

	core := boot.New(eng, hostPort, byte(info.ChecksumStatus), cfg.FastBoot)

	frames := defaultPlaySeconds * sampleRate / engine.FrameSamples
	if cfg.Track >= 0 {
		if ti, err := cat.TrackInfo(cfg.Track); err == nil && ti.TimeFrames > 0 && !ti.Looping {
			frames = ti.TimeFrames
		}
	}

	if err := renderPlayback(core, cfg.Track, frames, wr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := wr.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Fprintf(os.Stderr, "dcsplay: wrote %s\n", cfg.Output)
	return 0
}

// renderPlayback drives core through hard-boot and bong, triggers track
// (when >= 0) once Running, then pulls frameCount frames' worth of
// samples into wr. The boot-window and bong samples before Running are
// written to wr as well, ahead of those frameCount frames.
func renderPlayback(core *boot.Core, track int, frameCount int, wr *wav.Writer) error {
	triggered := false
	total := frameCount * engine.FrameSamples
	buf := make([]int16, 0, engine.FrameSamples)

	for i := 0; i < total; {
		if !triggered && core.State() == boot.StateRunning {
			if track >= 0 {
				core.WriteDataPort(byte(track >> 8))
				core.WriteDataPort(byte(track))
			}
			triggered = true
		}
		buf = append(buf, core.NextSample())
		if triggered {
			i++
		}
		if len(buf) == engine.FrameSamples {
			if err := wr.WriteSamples(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
		if core.State() == boot.StateDecoderFatalError {
			return fmt.Errorf("dcsplay: decoder entered a fatal state: %s", core.ErrorMessage())
		}
	}
	return wr.WriteSamples(buf)
}
