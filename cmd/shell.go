package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/report"
	"github.com/pable/fgframes/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	cGreeting.Println("fgframes shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("fgframes")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			shellList(db)
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <hash-prefix> [--windows N]")
				continue
			}
			limit := 40
			for i := 1; i+1 < len(args); i++ {
				if args[i] == "--windows" {
					limit, _ = strconv.Atoi(args[i+1])
				}
			}
			shellShow(db, args[0], limit)
		case "insights":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: insights <hash-prefix>")
				continue
			}
			shellInsights(db, args[0])
		case "player":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: player <name> [<name>...]")
				continue
			}
			shellPlayer(db, args)
		case "trend":
			shellTrend(db)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q; type 'help'\n", cmd)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored analyses"},
		{"show <hash-prefix>", "show an analysis: summary, windows, jumps, insights"},
		{"show <hash-prefix> --windows <n>", "same, printing at most n windows (0 = all)"},
		{"insights <hash-prefix>", "show only the coaching insights"},
		{"player <name> [...]", "cross-analysis stats for one or more players"},
		{"trend", "advantage trend across recent analyses"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(db *storage.DB) {
	recs, err := db.ListAnalyses()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(recs) == 0 {
		cMuted.Println("No analyses stored yet.")
		return
	}
	report.PrintAnalysisList(os.Stdout, recs)
}

func shellShow(db *storage.DB, prefix string, limit int) {
	rec, a, err := db.LoadAnalysis(prefix)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "no analysis found with prefix %q\n", prefix)
		return
	}
	printAnalysis(os.Stdout, *rec, a, limit)
}

func shellInsights(db *storage.DB, prefix string) {
	rec, err := db.GetAnalysisByPrefix(prefix)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "no analysis found with prefix %q\n", prefix)
		return
	}
	msgs, err := db.GetInsights(rec.Hash)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	cHeader.Fprintf(os.Stdout, "--- %s ---\n", rec.ShortHash())
	report.PrintInsights(os.Stdout, msgs)
}

func shellPlayer(db *storage.DB, names []string) {
	for _, name := range names {
		agg, err := db.GetPlayerAggregate(name)
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if agg == nil {
			fmt.Fprintf(os.Stderr, "no data for player %q\n", name)
			continue
		}
		report.PrintPlayerAggregate(os.Stdout, *agg)
	}
}

func shellTrend(db *storage.DB) {
	recs, err := db.GetTrend(20)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(recs) == 0 {
		cMuted.Println("No analyses stored yet.")
		return
	}
	report.PrintTrendTable(os.Stdout, recs)
}
