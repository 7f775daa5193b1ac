// Command tripledger-report prints the settlement of a period, or the list of
// recorded periods when none is given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"tripledger/internal/backend"
	"tripledger/internal/cli"
	"tripledger/internal/core"
	"tripledger/internal/log"
	"tripledger/internal/services"
	"tripledger/internal/settlement"
)

const (
	msgNoPeriods = "No periods found in the database."
	msgNoData    = "No data found for the selected period."
)

type reportLedger interface {
	ListPeriods(ctx context.Context) []core.Period
	Settle(ctx context.Context, p core.Period) (settlement.Settlement, error)
}

func main() {
	period := flag.String("period", "", "period to settle, e.g. 2024_March; lists periods when empty")
	flag.Parse()

	cli.LoadEnvFile()
	// Keep stdout for the report itself.
	logCfg := log.DefaultConfig()
	logCfg.Output = os.Stderr
	logCfg.Level, _ = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := log.New(logCfg)
	log.SetDefault(logger)

	cfg := cli.LoadAndValidateConfig(logger)
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := backend.NewFactory(logger).CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger store", "error", err)
		os.Exit(1)
	}
	svc := services.NewLedgerService(store.Store, nil).WithLogger(logger)
	defer svc.Close()

	if err := run(ctx, svc, *period, cfg.Currency, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(ctx context.Context, l reportLedger, period, currency string, out io.Writer) error {
	if period == "" {
		return listPeriods(ctx, l, out)
	}

	p, err := core.ParsePeriod(period)
	if err != nil {
		return err
	}
	s, err := l.Settle(ctx, p)
	if errors.Is(err, settlement.ErrNoData) {
		_, err = fmt.Fprintln(out, msgNoData)
		return err
	}
	if err != nil {
		return err
	}
	return printSettlement(out, s, currency)
}

func listPeriods(ctx context.Context, l reportLedger, out io.Writer) error {
	periods := l.ListPeriods(ctx)
	if len(periods) == 0 {
		_, err := fmt.Fprintln(out, msgNoPeriods)
		return err
	}
	for _, p := range periods {
		if _, err := fmt.Fprintln(out, p); err != nil {
			return err
		}
	}
	return nil
}

func printSettlement(out io.Writer, s settlement.Settlement, currency string) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Period\t%s\n", s.Period)
	fmt.Fprintf(tw, "Payer\t%s\n", s.Payer)
	if s.Comment != "" {
		fmt.Fprintf(tw, "Comment\t%s\n", s.Comment)
	}
	fmt.Fprintf(tw, "Total Income\t%s\n", core.FormatAmount(currency, s.TotalIncome))
	fmt.Fprintf(tw, "Total Expense\t%s\n", core.FormatAmount(currency, s.TotalExpense))
	fmt.Fprintf(tw, "Remaining Budget\t%s\n", core.FormatAmount(currency, s.RemainingBudget))

	fmt.Fprintf(tw, "\nAmount Owed to %s\t\n", s.Payer)
	for _, name := range s.Participants {
		if owed, ok := s.AmountOwed[name]; ok {
			fmt.Fprintf(tw, "  %s\t%s\n", name, core.FormatAmount(currency, owed))
		}
	}
	return tw.Flush()
}
