// Package dcslog wraps github.com/charmbracelet/log behind a small,
// package-level surface: configured once by a cmd/ entry point from its
// verbosity flags. The internal packages that log (ident, engine, boot)
// use charmbracelet/log's package-level default logger, which Init
// configures, matching the teacher's package-level configuration state
// (e.g. appserver.go's tnc_hostname/mycall) rather than threading a
// logger through every constructor.
package dcslog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is a dcs-prefixed structured logger whose level Init sets. No
// internal package logs through it: internal/ident, internal/engine and
// internal/boot import charmbracelet/log themselves and use its
// package-level default logger, which Init reconfigures in place.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
	Prefix:          "dcs",
})

// Init configures the shared logger and charmbracelet/log's own default
// logger (which internal/ident, internal/engine and internal/boot log
// through) from a
// verbosity level name, as parsed from cmd/*'s --log-level flag.
func Init(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	log.SetLevel(lvl)
	log.SetReportTimestamp(false)
	log.SetPrefix("dcs")
	return nil
}
