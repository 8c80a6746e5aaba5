// Package romload loads a ROM set from the filesystem: a directory of
// per-chip dump files, or a zip archive of the same. This is CLI wiring
// (spec §1 Non-goals: "Archive (ZIP) unpacking"), shared by cmd/dcsplay
// and cmd/dcscat via the cmd/internal visibility boundary rather than
// living in internal/romset itself.
package romload

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mjr/dcsexplorer-go/internal/romset"
)

// chipFileName matches a dump file's chip number anywhere in its base
// name: "u2.bin", "U2", "rom_u7.dat", "tz_u9" all resolve to chip 2, 2, 7, 9
// respectively.
var chipFileName = regexp.MustCompile(`(?i)u([2-9])\b`)

// chipNumberFromName returns the chip number (2..9) encoded in name, or
// ok=false if none is found.
func chipNumberFromName(name string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	m := chipFileName.FindStringSubmatch(base)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Load builds a romset.ROMSet from path, which may be a directory
// containing one dump file per populated chip, or a .zip archive of the
// same. Files whose name doesn't encode a recognizable chip number are
// skipped.
func Load(path string) (*romset.ROMSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("romload: %w", err)
	}
	if info.IsDir() {
		return loadDir(path)
	}
	return loadZip(path)
}

func loadDir(dir string) (*romset.ROMSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("romload: reading %s: %w", dir, err)
	}
	set := romset.New()
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		chipNum, ok := chipNumberFromName(ent.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			return nil, fmt.Errorf("romload: reading %s: %w", ent.Name(), err)
		}
		set.AddROM(chipNum, data)
	}
	return set, nil
}

func loadZip(path string) (*romset.ROMSet, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("romload: opening %s: %w", path, err)
	}
	defer r.Close()

	set := romset.New()
	for _, f := range r.File {
		chipNum, ok := chipNumberFromName(f.Name)
		if !ok {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("romload: opening %s in archive: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("romload: reading %s in archive: %w", f.Name, err)
		}
		set.AddROM(chipNum, data)
	}
	return set, nil
}
