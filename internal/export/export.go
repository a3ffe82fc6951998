// Package export renders the ordered active-prescription sequence as
// a timestamped document and hands the bytes to a Saver that persists
// them to a user-visible downloads location.
//
// Two renderings are supported: an HTML table and a flat label/value
// text block. Both consume the same (term sortOrder, uid) ordered
// sequence the repository's active query produces, so the exported
// document always matches the live view.
package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/medsched/medsched/internal/engine"
	"github.com/medsched/medsched/internal/store"
)

// Format selects the export rendering.
type Format int

const (
	// FormatHTML renders a structured markup table.
	FormatHTML Format = iota + 1
	// FormatText renders a flat label/value block per record.
	FormatText
)

// String returns the format's file extension name.
func (f Format) String() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatText:
		return "txt"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// MIME returns the content type for the rendering.
func (f Format) MIME() string {
	if f == FormatHTML {
		return "text/html"
	}
	return "text/plain"
}

// Stamp formats a timestamp for embedding in export file names.
func Stamp(t time.Time) string {
	return t.Format("20060102_1504")
}

// FileName builds the export document name for a format and time,
// e.g. "meds_active_20240615_0930.html".
func FileName(f Format, t time.Time) string {
	return fmt.Sprintf("meds_active_%s.%s", Stamp(t), f)
}

// Render produces the document body for the given format.
func Render(f Format, rows []store.PrescriptionWithTerm) string {
	if f == FormatHTML {
		return RenderHTML(rows)
	}
	return RenderText(rows)
}

// RenderHTML renders the active list as a standalone HTML document
// with one table row per record.
func RenderHTML(rows []store.PrescriptionWithTerm) string {
	var sb strings.Builder

	sb.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>Active meds</title>")
	sb.WriteString("<style>body{font-family:sans-serif}table{border-collapse:collapse;width:100%}th,td{border:1px solid #ccc;padding:6px}th{background:#f5f5f5}</style>")
	sb.WriteString("</head><body><h2>Active prescriptions</h2>")
	sb.WriteString("<table><tr>")
	for _, h := range []string{
		"UID", "Name", "Description", "Time term", "Start", "End",
		"Doctor", "Location", "IsActive", "HasReceivedToday", "LastDateReceived",
	} {
		sb.WriteString("<th>")
		sb.WriteString(h)
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr>")

	for _, pt := range rows {
		sb.WriteString("<tr>")
		td(&sb, fmt.Sprintf("%d", pt.UID))
		td(&sb, html.EscapeString(orDash(pt.ShortName)))
		td(&sb, html.EscapeString(orDash(pt.Description)))
		td(&sb, html.EscapeString(orDash(pt.TermCode)))
		td(&sb, engine.FormatEpochDay(pt.StartDateEpoch))
		td(&sb, engine.FormatEpochDay(pt.EndDateEpoch))
		td(&sb, html.EscapeString(orDash(pt.DoctorName)))
		td(&sb, html.EscapeString(orDash(pt.DoctorLocation)))
		td(&sb, boolStr(pt.IsActive))
		td(&sb, boolStr(pt.HasReceivedToday))
		td(&sb, lastReceived(pt.LastDateReceivedEpoch))
		sb.WriteString("</tr>")
	}

	sb.WriteString("</table></body></html>")
	return sb.String()
}

// RenderText renders the active list as one label/value block per
// record, separated by a dashed rule.
func RenderText(rows []store.PrescriptionWithTerm) string {
	var sb strings.Builder

	for _, pt := range rows {
		fmt.Fprintf(&sb, "UID: %d\n", pt.UID)
		fmt.Fprintf(&sb, "Name: %s\n", orDash(pt.ShortName))
		fmt.Fprintf(&sb, "Description: %s\n", orDash(pt.Description))
		fmt.Fprintf(&sb, "Time term: %s\n", orDash(pt.TermCode))
		fmt.Fprintf(&sb, "Start: %s\n", engine.FormatEpochDay(pt.StartDateEpoch))
		fmt.Fprintf(&sb, "End: %s\n", engine.FormatEpochDay(pt.EndDateEpoch))
		fmt.Fprintf(&sb, "Doctor: %s\n", orDash(pt.DoctorName))
		fmt.Fprintf(&sb, "Location: %s\n", orDash(pt.DoctorLocation))
		fmt.Fprintf(&sb, "IsActive: %t\n", pt.IsActive)
		fmt.Fprintf(&sb, "HasReceivedToday: %t\n", pt.HasReceivedToday)
		fmt.Fprintf(&sb, "LastDateReceived: %s\n", lastReceived(pt.LastDateReceivedEpoch))
		sb.WriteString("----------------------------------------\n")
	}

	return sb.String()
}

func td(sb *strings.Builder, v string) {
	sb.WriteString("<td>")
	sb.WriteString(v)
	sb.WriteString("</td>")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func lastReceived(d *int64) string {
	if d == nil {
		return "-"
	}
	return engine.FormatEpochDay(*d)
}
