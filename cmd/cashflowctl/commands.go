package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"cashflow/internal/backend"
	"cashflow/internal/core"
	"cashflow/internal/services"
)

func forecastCmd(a *app) *cobra.Command {
	var date string
	var showSeries bool
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Show balance, next payday and safe-to-spend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := a.userID()
			if err != nil {
				return err
			}
			today, err := dateFlag(date)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(res *backend.Result) error {
				fc := services.NewForecastService(res.Store, services.ForecastConfig{})
				d, err := fc.Dashboard(cmd.Context(), uid, today)
				if err != nil {
					return err
				}
				printForecast(cmd.OutOrStdout(), d, showSeries)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "treat this day as today (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&showSeries, "series", false, "print the 30 day balance projection")
	return cmd
}

func printForecast(out io.Writer, d core.Dashboard, series bool) {
	f := d.Forecast
	payday := "none"
	if f.NextPayday != nil {
		payday = f.NextPayday.String()
		if f.PaydayFromSettings {
			payday += " (from settings)"
		}
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Today\t%s\n", f.Today)
	fmt.Fprintf(w, "Current balance\t%s\n", f.CurrentBalance)
	fmt.Fprintf(w, "Next payday\t%s\n", payday)
	fmt.Fprintf(w, "Bills due\t%s\n", f.BillsDue)
	fmt.Fprintf(w, "Safe to spend\t%s\n", f.SafeToSpend)
	fmt.Fprintf(w, "Income this month\t%s\n", d.IncomeMTD)
	fmt.Fprintf(w, "Unreviewed\t%d\n", d.UnreviewedCount)
	if series {
		fmt.Fprintln(w)
		for _, p := range f.Series {
			fmt.Fprintf(w, "%s\t%s\n", p.Date, p.Balance)
		}
	}
	w.Flush()
}

func budgetCmd(a *app) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show spending against category limits for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := a.userID()
			if err != nil {
				return err
			}
			m, err := monthFlag(month)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(res *backend.Result) error {
				fc := services.NewForecastService(res.Store, services.ForecastConfig{})
				report, err := fc.Budget(cmd.Context(), uid, m)
				if err != nil {
					return err
				}
				printBudget(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to report (YYYY-MM, default current)")
	return cmd
}

func printBudget(out io.Writer, r core.BudgetReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "GROUP\tCATEGORY\tSPENT\tLIMIT\tSTATUS\n")
	for _, g := range r.Groups {
		for _, cb := range g.Categories {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", g.Name, cb.Category.Name, cb.Spent, cb.Category.BudgetLimit, cb.Status)
		}
	}
	fmt.Fprintf(w, "Total\t%s\t%s\t%s\t", r.Month, r.TotalSpent, r.TotalBudget)
	if r.OverBudget {
		fmt.Fprintln(w, "over budget")
	} else {
		fmt.Fprintln(w, "ok")
	}
	w.Flush()
}

func billsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bills",
		Short: "Work with bills generated from templates",
	}

	var month string
	var idempotent bool
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Create pending bills for a month from the user's templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := a.userID()
			if err != nil {
				return err
			}
			m, err := monthFlag(month)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(res *backend.Result) error {
				bills := services.NewBillService(res.Store, res.Store)
				gen, err := bills.Generate(cmd.Context(), uid, m, services.GenerateOptions{Idempotent: idempotent})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Generated %d bills for %s\n", gen.Count, gen.Month)
				if gen.Skipped > 0 {
					fmt.Fprintf(out, "Skipped %d already generated\n", gen.Skipped)
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, tx := range gen.Transactions {
					fmt.Fprintf(w, "%s\t%s\t%s\n", tx.Date, tx.Description, tx.Amount)
				}
				return w.Flush()
			})
		},
	}
	generate.Flags().StringVar(&month, "month", "", "month to generate (YYYY-MM, default current)")
	generate.Flags().BoolVar(&idempotent, "idempotent", true, "skip bills already generated for the month instead of adding duplicates")

	cmd.AddCommand(generate)
	return cmd
}

func paycheckCmd(a *app) *cobra.Command {
	var hours, overtime, payDate string
	cmd := &cobra.Command{
		Use:   "paycheck",
		Short: "Estimate net pay from hours worked",
		Long: `Estimate net pay using the user's hourly rate, tax rate and deductions.
With --pay-date the estimate is also recorded as expected income on that day.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := a.userID()
			if err != nil {
				return err
			}
			h, err := decimalFlag("hours", hours)
			if err != nil {
				return err
			}
			ot, err := decimalFlag("overtime", overtime)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(res *backend.Result) error {
				svc := services.NewPaycheckService(res.Store)
				var pc core.Paycheck
				var tx core.Transaction
				if payDate == "" {
					pc, err = svc.Preview(cmd.Context(), uid, h, ot)
				} else {
					var d core.Date
					if d, err = core.ParseDate(payDate); err != nil {
						return fmt.Errorf("invalid --pay-date: %w", err)
					}
					pc, tx, err = svc.Estimate(cmd.Context(), uid, h, ot, d)
				}
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Regular\t%s\n", pc.RegularPay)
				fmt.Fprintf(w, "Overtime\t%s\n", pc.OvertimePay)
				fmt.Fprintf(w, "Gross\t%s\n", pc.GrossPay)
				fmt.Fprintf(w, "Tax (%s%%)\t%s\n", pc.TaxRate, pc.TaxAmount)
				fmt.Fprintf(w, "Deductions\t%s\n", pc.Deductions)
				fmt.Fprintf(w, "Net\t%s\n", pc.NetPay)
				if tx.ID != "" {
					fmt.Fprintf(w, "Recorded\t%s on %s\n", tx.ID, tx.Date)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&hours, "hours", "", "regular hours worked")
	cmd.Flags().StringVar(&overtime, "overtime", "0", "overtime hours, paid at 1.5x")
	cmd.Flags().StringVar(&payDate, "pay-date", "", "record the estimate as income on this day (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func templatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage recurring bill templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the user's bill templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := a.userID()
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(res *backend.Result) error {
				tpls, err := services.NewRecordService(res.Store).Templates(cmd.Context(), uid)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(tpls) == 0 {
					fmt.Fprintln(out, "No bill templates found.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "DAY\tDESCRIPTION\tAMOUNT\tCATEGORY\n")
				for _, t := range tpls {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.DayOfMonth, t.Description, t.Amount, t.Category)
				}
				return w.Flush()
			})
		},
	})
	return cmd
}

func dateFlag(v string) (core.Date, error) {
	if strings.TrimSpace(v) == "" {
		return core.Today(time.Now()), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid --date %q: %w", v, err)
	}
	return d, nil
}

func monthFlag(v string) (core.Month, error) {
	if strings.TrimSpace(v) == "" {
		return core.MonthOf(core.Today(time.Now())), nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return core.Month{}, fmt.Errorf("invalid --month %q: %w", v, err)
	}
	return m, nil
}

func decimalFlag(name, v string) (decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q", name, v)
	}
	return d, nil
}
