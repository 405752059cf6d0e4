package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"tmsbridge/internal/api"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 14

// statusColor groups source and target statuses by what the operator should do.
func statusColor(status string) string {
	switch status {
	case "CURRENT":
		return ansiGreen
	case "ERROR", "CANCELLED":
		return ansiRed
	case "EDITED", "READY", "REQUEST":
		return ansiYellow
	case "IMPORTING", "PENDING", "INTERMEDIATE":
		return ansiBlue
	default:
		return ""
	}
}

func paintStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	if color := statusColor(status); color != "" {
		return color + status + ansiReset
	}
	return status
}

func renderUnitDetail(w io.Writer, unit api.Unit, colorize bool) error {
	line := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "  %-*s %s\n", statusLabelWidth, label+":", value)
	}
	line("Unit", unit.Ref)
	line("Source", paintStatus(unit.SourceStatus, colorize))
	line("Document", unit.DocumentID)
	line("Revision", unit.RevisionID)
	line("Profile", unit.ProfileID)
	line("Source locale", unit.SourceLocale)
	line("Imported", yesNo(unit.ImportedOnce))
	if unit.LastError != "" {
		line("Last error", unit.LastError)
	}
	if len(unit.Targets) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(unit.Targets))
	for _, target := range unit.Targets {
		rows = append(rows, []string{
			target.Locale,
			target.DisplayName,
			paintStatus(target.Status, colorize),
			strconv.Itoa(target.Progress) + "%",
			target.LastError,
		})
	}
	_, err := fmt.Fprintln(w, renderTable(
		[]string{"Locale", "Language", "Status", "Progress", "Last error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return err
}

func renderUnitList(w io.Writer, units []api.Unit, colorize bool) error {
	if len(units) == 0 {
		_, err := fmt.Fprintln(w, "No units")
		return err
	}
	rows := make([][]string, 0, len(units))
	for _, unit := range units {
		rows = append(rows, []string{
			strconv.FormatInt(unit.ID, 10),
			unit.Ref,
			paintStatus(unit.SourceStatus, colorize),
			valueOrDash(unit.DocumentID),
			valueOrDash(unit.RevisionID),
			api.TargetSummary(unit),
		})
	}
	_, err := fmt.Fprintln(w, renderTable(
		[]string{"ID", "Unit", "Source", "Document", "Revision", "Targets"},
		rows,
		[]columnAlignment{alignRight},
	))
	return err
}

func renderProfiles(w io.Writer, profiles []api.ProfileResponse) error {
	for i, p := range profiles {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Profile %s\n", p.ProfileID)
		rows := make([][]string, 0, len(p.Policies))
		for _, policy := range p.Policies {
			rows = append(rows, []string{
				policy.Locale,
				policy.DisplayName,
				yesNo(policy.AutoUpload),
				yesNo(policy.AutoDownload),
			})
		}
		if _, err := fmt.Fprintln(w, renderTable([]string{"Locale", "Language", "Auto upload", "Auto download"}, rows, nil)); err != nil {
			return err
		}
	}
	return nil
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
