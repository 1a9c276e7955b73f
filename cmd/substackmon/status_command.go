package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
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
	statusLabelWidth = 16
	statusIndent     = "  "
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and worker status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			colorize := stdoutIsTerminal()
			out := cmd.OutOrStdout()

			workerKind := statusWarn
			workerMsg := "idle"
			if status.WorkerActive {
				workerKind = statusOK
				workerMsg = "running"
			}
			pingKind := statusWarn
			pingMsg := "inactive"
			if status.PingActive {
				pingKind = statusOK
				pingMsg = "active"
			}

			fmt.Fprintln(out, "Substack monitor")
			fmt.Fprintln(out, renderStatusLine("Worker", workerKind, workerMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Keepalive", pingKind, pingMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Cycles", statusInfo, fmt.Sprintf("%d", status.CycleCount), colorize))
			if status.LastOutcome != "" {
				kind := statusInfo
				if strings.HasSuffix(status.LastOutcome, "_failed") || status.LastOutcome == "summarize_blocked" {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine("Last outcome", kind, status.LastOutcome, colorize))
			}
			if status.LastProcessed != "" {
				fmt.Fprintln(out, renderStatusLine("Last processed", statusInfo, status.LastProcessed, colorize))
			}
			if status.StartedAt != "" {
				fmt.Fprintln(out, renderStatusLine("Worker since", statusInfo, status.StartedAt, colorize))
			}
			if status.LastPingAt != "" {
				kind := statusOK
				msg := "ok at " + status.LastPingAt
				if !status.LastPingOK {
					kind = statusError
					msg = "failed at " + status.LastPingAt
				}
				fmt.Fprintln(out, renderStatusLine("Last ping", kind, msg, colorize))
			}
			return nil
		},
	}
}

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
