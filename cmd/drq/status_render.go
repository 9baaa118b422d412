package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"drq/internal/api"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// statusLines renders a daemon status snapshot as sectioned status lines.
func statusLines(status *api.DaemonStatus, colorize bool) []string {
	var lines []string
	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "stopped", colorize))
	}
	if status.StartedAt != "" {
		lines = append(lines, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
	}
	lines = append(lines,
		renderStatusLine("Backend", statusInfo, status.Backend, colorize),
		renderStatusLine("Database", statusInfo, status.DatabasePath, colorize),
		"",
	)

	music := status.Music
	lines = append(lines, renderSectionHeader("Music queue", colorize)...)
	lines = append(lines,
		renderStatusLine("Pending", statusInfo, fmt.Sprint(music.Pending), colorize),
		renderStatusLine("Succeeded", statusOK, fmt.Sprint(music.Succeeded), colorize),
	)
	failedKind := statusOK
	if music.Failed > 0 {
		failedKind = statusError
	}
	lines = append(lines, renderStatusLine("Failed", failedKind, fmt.Sprint(music.Failed), colorize))
	if music.Draining {
		lines = append(lines, renderStatusLine("Worker", statusInfo, "draining", colorize))
	}
	lines = append(lines, "")

	sync := status.Sync
	lines = append(lines, renderSectionHeader("Venue sync", colorize)...)
	lines = append(lines, renderStatusLine("Endpoint", statusInfo, valueOrDash(sync.Endpoint), colorize))
	pendingKind := statusOK
	if sync.Pending > 0 {
		pendingKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Pending venues", pendingKind, fmt.Sprint(sync.Pending), colorize))
	if last := sync.LastSweep; last != nil {
		kind := statusOK
		message := fmt.Sprintf("%s (%d synced, %d remaining)", last.Outcome, last.Synced, last.Remaining)
		if last.Error != "" {
			kind = statusError
			message = fmt.Sprintf("%s: %s", last.Outcome, last.Error)
		}
		lines = append(lines, renderStatusLine("Last sweep", kind, message, colorize))
	} else {
		lines = append(lines, renderStatusLine("Last sweep", statusInfo, "none yet", colorize))
	}
	if sync.NextSweepAt != "" {
		lines = append(lines, renderStatusLine("Next sweep", statusInfo, fmt.Sprintf("%s (%s)", sync.NextSweepAt, sync.Schedule), colorize))
	}
	lines = append(lines, renderStatusLine("Network watch", statusInfo, yesNo(sync.NetworkWatch), colorize))
	return lines
}
