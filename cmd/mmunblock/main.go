package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mailman-tools/mmunblock/internal/artifact"
	"github.com/mailman-tools/mmunblock/internal/config"
	"github.com/mailman-tools/mmunblock/internal/history"
	"github.com/mailman-tools/mmunblock/internal/mailman"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mmunblock",
		Short: "mmunblock - clear bounce-disabled Mailman 2.1 members",
		Long: `mmunblock walks a Mailman 2.1 list's admin membership pages, finds
members whose delivery was disabled by the bounce processor, and
re-enables them by resubmitting the admin form exactly as a browser
would - with their nomail checkboxes unticked.

Configuration comes from the environment (a .env file is honored):

  MAILMAN_BASE_URL   base URL of the Mailman site
  MAILMAN_LIST_NAME  the list to operate on
  MAILMAN_ADMIN_PW   the list admin password`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mmunblock/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "More logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var missing *config.MissingError
		if errors.As(err, &missing) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func runCmd() *cobra.Command {
	var (
		dryRun  bool
		letter  string
		letters string
		dumpDir string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Unblock bounce-disabled members",
		Long: `Process the membership letter pages, unblocking every member whose
delivery was disabled due to bounces. Members disabled by the admin or
by themselves are reported but left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnblock(dryRun, letter, letters, dumpDir)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be changed but do not submit")
	cmd.Flags().StringVar(&letter, "letter", "", "Process a single letter page (e.g. 'b')")
	cmd.Flags().StringVar(&letters, "letters", "", "Process multiple letters (e.g. '1,abc' or 'abc')")
	cmd.Flags().StringVar(&dumpDir, "dump-dir", "", "Write fetched pages and payloads to this directory")

	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent runs to show")

	return cmd
}

func runUnblock(dryRun bool, letterFlag, lettersFlag, dumpDir string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if dumpDir == "" {
		dumpDir = cfg.DumpDir
	}
	var dumper *artifact.Dumper
	if dumpDir != "" {
		dumper, err = artifact.NewDumper(dumpDir)
		if err != nil {
			return err
		}
		logger.Info("dumping artifacts", "dir", dumpDir)
	}

	letters := selectLetters(letterFlag, lettersFlag, cfg.Letters)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mailman.NewClient(cfg, logger, dumper)
	if err != nil {
		return err
	}
	if err := client.Login(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	store, err := history.NewStore(cfg.HistoryDB)
	if err != nil {
		logger.Warn("history disabled", "err", err)
		store = nil
	} else {
		defer store.Close()
	}

	run := &history.Run{
		DryRun:    dryRun,
		Letters:   fmt.Sprintf("%v", letters),
		StartedAt: time.Now(),
	}
	if store != nil {
		if err := store.AddRun(run); err != nil {
			logger.Warn("failed to record run", "err", err)
			store = nil
		}
	}

	total, failed := 0, 0
	for _, l := range letters {
		result, err := client.ProcessLetter(ctx, l, dryRun)

		outcome := history.LetterOutcome{RunID: run.ID, Letter: l}
		if result != nil {
			outcome.Blocked = len(result.Blocked)
			outcome.Targets = len(result.Targets)
			outcome.Unblocked = result.Unblocked
			outcome.Escalated = result.Escalated
			outcome.Retried = result.Retried
		}

		if err != nil {
			// One bad letter never aborts the run; Mailman pages fail
			// independently of each other.
			failed++
			outcome.Error = err.Error()
			var terr *mailman.TransportError
			if errors.As(err, &terr) {
				fmt.Fprintf(os.Stderr, "[%s] HTTP error: %v\n", l, terr)
			} else {
				fmt.Fprintf(os.Stderr, "[%s] Unexpected error: %v\n", l, err)
			}
			if store != nil {
				if err := store.AddLetter(&outcome); err != nil {
					logger.Warn("failed to record letter", "letter", l, "err", err)
				}
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		reportLetter(result, dryRun)
		if dryRun {
			total += len(result.Targets)
		} else {
			total += result.Unblocked
		}
		if store != nil {
			if err := store.AddLetter(&outcome); err != nil {
				logger.Warn("failed to record letter", "letter", l, "err", err)
			}
		}
	}

	if store != nil {
		if err := store.FinishRun(run.ID, total, failed); err != nil {
			logger.Warn("failed to finalize run", "err", err)
		}
	}

	if dryRun {
		fmt.Printf("Dry run complete. Would unblock %d member(s) total.\n", total)
	} else {
		fmt.Printf("Done. Unblocked %d member(s) total.\n", total)
	}
	return nil
}

// reportLetter prints the per-letter summary lines.
func reportLetter(result *mailman.LetterResult, dryRun bool) {
	l := result.Letter

	if verbose && len(result.Blocked) > 0 {
		fmt.Printf("[%s] Blocked by reason:", l)
		for _, reason := range []mailman.Reason{mailman.ReasonBounce, mailman.ReasonAdmin, mailman.ReasonUser, mailman.ReasonUnknown} {
			if n := result.Histogram[reason]; n > 0 {
				fmt.Printf(" %s=%d", reason, n)
			}
		}
		fmt.Println()
	}

	if len(result.Targets) == 0 {
		if verbose {
			fmt.Printf("[%s] No bounce-disabled members.\n", l)
		}
		return
	}

	if dryRun {
		fmt.Printf("[%s] Would unblock %d member(s):\n", l, len(result.Targets))
		for _, t := range result.Targets {
			fmt.Printf("  - %s\n", t.Address)
		}
		printPayload(result)
		return
	}

	if verbose {
		printPayload(result)
	}

	switch {
	case result.Unblocked > 0 && result.Retried:
		fmt.Printf("[%s] Unblocked %d member(s) after clearing bounce records.\n", l, result.Unblocked)
	case result.Unblocked > 0:
		fmt.Printf("[%s] Unblocked %d member(s).\n", l, result.Unblocked)
	default:
		fmt.Printf("[%s] Unblocked 0 member(s); %d still flagged.\n", l, len(result.Targets))
	}
}

// printPayload surfaces the would-be submission for inspection,
// redacted the same way dumped artifacts are.
func printPayload(result *mailman.LetterResult) {
	if result.ActionURL == "" {
		return
	}
	fmt.Printf("[%s] Action URL: %s\n", result.Letter, result.ActionURL)
	for _, pair := range artifact.Redact(result.Payload) {
		fmt.Printf("    %s=%s\n", pair.Name, pair.Value)
	}
}

// selectLetters resolves the letter set: single-letter flag, then the
// multi-letter flag, then the config file, then Mailman's full tab set.
func selectLetters(letter, letters, cfgLetters string) []string {
	switch {
	case letter != "":
		return mailman.ParseLetters(letter)
	case letters != "":
		return mailman.ParseLetters(letters)
	case cfgLetters != "":
		return mailman.ParseLetters(cfgLetters)
	default:
		return mailman.DefaultLetters()
	}
}

func runHistory(limit int) error {
	_ = godotenv.Load()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		fmt.Printf("#%d  %s  %s  unblocked=%d failed=%d  letters=%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04"), mode, r.Unblocked, r.Failed, r.Letters)

		if verbose {
			outcomes, err := store.LettersForRun(r.ID)
			if err != nil {
				return err
			}
			for _, o := range outcomes {
				if o.Targets == 0 && o.Error == "" {
					continue
				}
				line := fmt.Sprintf("    [%s] blocked=%d targets=%d unblocked=%d", o.Letter, o.Blocked, o.Targets, o.Unblocked)
				if o.Escalated {
					line += " escalated"
				}
				if o.Error != "" {
					line += " error: " + o.Error
				}
				fmt.Println(line)
			}
		}
	}

	total, err := store.TotalUnblocked()
	if err != nil {
		return err
	}
	fmt.Printf("\nTotal unblocked across all runs: %d\n", total)
	return nil
}
