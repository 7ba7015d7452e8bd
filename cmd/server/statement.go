package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/bizledger/format"
	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/internal/logger"
	"github.com/warp/bizledger/ledger"
)

var statementCmd = &cobra.Command{
	Use:   "statement [party-id]",
	Short: "Print a party's ledger",
	Long: `Build a party's running-balance statement from the configured store
and print it as a table. Records before --from fold into the opening
balance. Without --to the closing balance is compared with the party's
stored outstanding balance.`,
	Example: `  bizledger statement party-asha
  bizledger statement party-asha --from 2025-04-01 --to 2025-04-30 --opening 1500`,
	Args: cobra.ExactArgs(1),
	RunE: runStatement,
}

func init() {
	statementCmd.Flags().String("from", "", "First day of the window (YYYY-MM-DD)")
	statementCmd.Flags().String("to", "", "Last day of the window (YYYY-MM-DD)")
	statementCmd.Flags().String("opening", "0", "Opening balance")
	statementCmd.Flags().Duration("timeout", 30*time.Second, "Build timeout")
}

func runStatement(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	from, _ := flags.GetString("from")
	to, _ := flags.GetString("to")
	openingText, _ := flags.GetString("opening")
	timeout, _ := flags.GetDuration("timeout")

	period, err := dayWindow(from, to)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	party, err := store.GetParty(ctx, generic.PartyID(args[0]))
	if err != nil {
		return err
	}

	builder := ledger.NewBuilder(store)
	log := logger.WithComponent("ledger")
	builder.Options.Log = &log

	stmt, err := builder.BuildPeriod(ctx, party.ID, generic.ParseAmount(openingText), period)
	if err != nil {
		return err
	}

	currency := format.NewCurrency(cfg.CurrencyLocale, "₹")
	printStatement(cmd.OutOrStdout(), party, stmt, currency, period.End.IsZero())
	return nil
}

func dayWindow(from, to string) (generic.Period, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse("2006-01-02", from); err != nil {
			return generic.Period{}, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse("2006-01-02", to); err != nil {
			return generic.Period{}, fmt.Errorf("--to: %w", err)
		}
	}
	p := generic.DayPeriod(start, end)
	return p, p.Validate()
}

func printStatement(out io.Writer, party *generic.Party, stmt *ledger.Statement, currency format.Currency, reconcile bool) {
	fmt.Fprintf(out, "%s (%s)  %s\n\n", party.Name, party.ID, stmt.Period)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tKind\tReference\tDebit\tCredit\tBalance\t")
	fmt.Fprintf(tw, "\tOpening\t\t\t\t%s\t\n", currency.Format(stmt.OpeningBalance))
	for _, e := range stmt.Entries {
		date := e.FormattedDate
		if e.DateFallback {
			date += "*"
		}
		ref := e.InvoiceNumber
		if e.Record.Payment != nil {
			ref = e.Record.Payment.ReferenceNumber
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			date, e.Record.Kind, ref, amountCell(currency, e.Debit), amountCell(currency, e.Credit), currency.Format(e.Balance))
	}
	fmt.Fprintf(tw, "\tTotal\t\t%s\t%s\t%s\t\n",
		currency.Format(stmt.TotalDebit), currency.Format(stmt.TotalCredit), currency.Format(stmt.ClosingBalance))
	tw.Flush()

	if stmt.FallbackDates > 0 {
		fmt.Fprintf(out, "\n* %d record(s) had an unreadable date and are shown at the build time\n", stmt.FallbackDates)
	}
	if reconcile {
		rec := stmt.Reconcile(party.Outstanding)
		if rec.Diverged {
			fmt.Fprintf(out, "\nStored outstanding %s differs from the ledger by %s\n",
				currency.Format(rec.Outstanding), currency.Format(rec.Difference))
		} else {
			fmt.Fprintf(out, "\nStored outstanding matches the ledger\n")
		}
	}
}

// amountCell leaves zero amounts blank.
func amountCell(c format.Currency, v decimal.Decimal) string {
	if v.IsZero() {
		return ""
	}
	return c.Format(v)
}
