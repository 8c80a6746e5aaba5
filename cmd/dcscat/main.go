// Command dcscat dumps a DCS ROM set's catalog, track index, decompiled
// track programs, and deferred-indirect tables, for offline inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/mjr/dcsexplorer-go/cmd/internal/romload"
	"github.com/mjr/dcsexplorer-go/internal/catalog"
	"github.com/mjr/dcsexplorer-go/internal/config"
	"github.com/mjr/dcsexplorer-go/internal/dcslog"
	"github.com/mjr/dcsexplorer-go/internal/ident"
	"github.com/mjr/dcsexplorer-go/internal/track"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("dcscat", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - dump a DCS sound-board ROM set's catalog and track programs\n", "dcscat")
		fmt.Fprintf(os.Stderr, "\nUsage: dcscat -rom <dir-or-zip> [options]\n\n")
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
		fmt.Fprintf(os.Stderr, "dcscat: identification failed: %v (status=%d)\n", err, info.ChecksumStatus)
		return 1
	}
	fmt.Printf("%s  signature=%q  channels=%d  catalog=$%04X  checksum-status=%d\n",
		info, info.Signature, info.NumChannels, info.CatalogOffset, info.ChecksumStatus)

	cat := catalog.New(set, info.HW.ROMVariant(), info.OS.UsesWideWriteDataPort(), info.CatalogOffset)
	fmt.Printf("tracks: %d\n\n", cat.NumTracks())

	for n := 0; n < cat.NumTracks(); n++ {
		ti, err := cat.TrackInfo(n)
		if err != nil || ti.Type == catalog.TrackAbsent {
			continue
		}
		dumpTrack(ti, info.OS.UsesWideWriteDataPort())
	}

	tables := cat.HarvestDeferredIndirectTables()
	if len(tables) > 0 {
		fmt.Println("\ndeferred-indirect tables:")
		for idx, t := range tables {
			fmt.Printf("  table %d (len %d): %v\n", idx, t.Length, t.Entries)
		}
	}

	return 0
}

func dumpTrack(ti catalog.TrackInfo, os93a bool) {
	switch ti.Type {
	case catalog.TrackProgram:
		fmt.Printf("track %4d  channel %d  program", ti.Number, ti.Channel)
		if ti.Looping {
			fmt.Printf("  (loops forever, est. %d frames before repeat)\n", ti.TimeFrames)
		} else {
			fmt.Printf("  (%d frames)\n", ti.TimeFrames)
		}
		prog := track.Decompile(ti.Body, os93a)
		for _, ins := range prog.Instructions {
			fmt.Printf("    %s\n", ins)
		}
	case catalog.TrackDefer:
		fmt.Printf("track %4d  channel %d  defer -> track %d\n", ti.Number, ti.Channel, ti.DeferTrack)
	case catalog.TrackDeferIndirect:
		tableIndex := ti.DeferIndirectKey >> 8
		varIndex := ti.DeferIndirectKey & 0xFF
		fmt.Printf("track %4d  channel %d  defer-indirect: var %d, table %d\n",
			ti.Number, ti.Channel, varIndex, tableIndex)
	}
}
