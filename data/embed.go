package data

import (
	_ "embed"
)

// DefaultPresets lists the read-only system presets seeded at startup
//
//go:embed presets/defaults.json
var DefaultPresets []byte

// ReportTemplate renders the printed notes report and the emailed notes table
//
//go:embed templates/report.html.tmpl
var ReportTemplate string
