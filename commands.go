package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/status"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func banksCommand() *cli.Command {
	return &cli.Command{
		Name:  "banks",
		Usage: "list supported banks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "filter by name"},
			&cli.BoolFlag{Name: "refresh", Usage: "bypass cached bank lists"},
		},
		Action: action(func(c *cli.Context, a *app) error {
			if c.Bool("refresh") {
				if _, err := a.banks.Refresh(c.Context); err != nil {
					return err
				}
			}

			list, err := a.banks.Search(c.Context, c.String("search"))
			if err != nil {
				return err
			}

			w := table(c.App.Writer)
			fmt.Fprintln(w, "CODE\tNAME\tTYPE")
			for _, bank := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", bank.Code, bank.Name, bank.Type)
			}
			return w.Flush()
		}),
	}
}

func destinationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "bank", Required: true, Usage: "bank code, see `payouts banks`"},
		&cli.StringFlag{Name: "account", Required: true, Usage: "10 digit account number"},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "resolve the holder of a bank account",
		Flags: destinationFlags(),
		Action: action(func(c *cli.Context, a *app) error {
			account, err := a.engine.Verify(c.Context, c.String("account"), c.String("bank"))
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(c.App.Writer, "%s\n%s\n", account.AccountName, account.BankName)
			return nil
		}),
	}
}

func limitsCommand() *cli.Command {
	return &cli.Command{
		Name:  "limits",
		Usage: "show balance and withdrawal limits",
		Action: action(func(c *cli.Context, a *app) error {
			limits, err := a.coord.Limits(c.Context)
			if err != nil {
				return describeError(err)
			}
			printLimits(c.App.Writer, limits)
			return nil
		}),
	}
}

func withdrawCommand() *cli.Command {
	return &cli.Command{
		Name:  "withdraw",
		Usage: "verify the destination and submit a withdrawal",
		Flags: append(destinationFlags(),
			&cli.StringFlag{Name: "amount", Required: true, Usage: "amount in naira"},
			&cli.BoolFlag{Name: "watch", Usage: "follow the withdrawal until it settles"},
		),
		Action: action(func(c *cli.Context, a *app) error {
			amount, err := decimal.NewFromString(c.String("amount"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid amount %q", c.String("amount")), 2)
			}

			if err := a.coord.SetBankCode(c.String("bank")); err != nil {
				return err
			}
			if err := a.coord.SetAccountNumber(c.String("account")); err != nil {
				return err
			}
			if err := a.coord.SetAmount(amount); err != nil {
				return err
			}

			account, err := a.coord.Verify(c.Context)
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(c.App.Writer, "Sending to %s, %s (%s)\n", account.AccountName, account.BankName, utils.MaskAccountNumber(account.AccountNumber))

			record, err := a.coord.Submit(c.Context)
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(c.App.Writer, "Withdrawal %s submitted for %s\n", record.ID, naira(record.Amount))

			if !c.Bool("watch") {
				return nil
			}
			return watchStatus(c, a, record.ID)
		}),
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "show the status of a withdrawal",
		ArgsUsage: "<withdrawal id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "watch", Usage: "poll until the withdrawal settles"},
		},
		Action: action(func(c *cli.Context, a *app) error {
			id := c.Args().First()
			if id == "" {
				return cli.Exit("a withdrawal id is required", 2)
			}
			if c.Bool("watch") {
				return watchStatus(c, a, id)
			}

			record, err := a.checker.CheckStatus(c.Context, id)
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintln(c.App.Writer, status.Describe(record))
			return nil
		}),
	}
}

func watchStatus(c *cli.Context, a *app, id string) error {
	last := domain.WithdrawalStatus("")
	_, err := status.Watch(c.Context, a.checker, id, a.config.PollInterval, func(u status.Update) {
		switch {
		case u.Err != nil:
			fmt.Fprintf(c.App.ErrWriter, "poll %d: %v\n", u.Polls, u.Err)
		case u.Record.Status != last:
			last = u.Record.Status
			fmt.Fprintln(c.App.Writer, status.Describe(u.Record))
		}
	})
	if err != nil && c.Context.Err() != nil {
		fmt.Fprintln(c.App.ErrWriter, "stopped watching, the withdrawal continues server side")
		return nil
	}
	if err != nil {
		return describeError(err)
	}
	return nil
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list past withdrawals",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Value: 1},
			&cli.IntFlag{Name: "per-page", Value: domain.DefaultHistoryPerPage},
			&cli.StringFlag{Name: "status", Usage: "pending, processing, completed, failed or cancelled"},
		},
		Action: action(func(c *cli.Context, a *app) error {
			var filter *domain.WithdrawalStatus
			if raw := strings.TrimSpace(c.String("status")); raw != "" {
				s := domain.WithdrawalStatus(strings.ToLower(raw))
				filter = &s
			}

			page, err := a.history.ListHistory(c.Context, c.Int("page"), c.Int("per-page"), filter)
			if err != nil {
				return describeError(err)
			}

			w := table(c.App.Writer)
			fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tSTATUS\tBANK\tACCOUNT")
			for _, row := range page.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					row.ID, row.CreatedAt.Format("2006-01-02 15:04"), naira(row.Amount), row.Status, row.BankName, row.AccountNumber)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			p := page.Pagination
			fmt.Fprintf(c.App.Writer, "page %d of %d, %d withdrawals\n", p.Page, p.TotalPages, p.Total)
			return nil
		}),
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "summarise withdrawals over a period",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "period", Value: 30, Usage: "days to look back"},
		},
		Action: action(func(c *cli.Context, a *app) error {
			stats, err := a.history.ComputeStats(c.Context, c.Int("period"))
			if err != nil {
				return describeError(err)
			}

			w := table(c.App.Writer)
			fmt.Fprintf(w, "Period\t%d days\n", stats.PeriodDays)
			fmt.Fprintf(w, "Completed\t%d\n", stats.SuccessCount)
			fmt.Fprintf(w, "Failed\t%d\n", stats.FailedCount)
			fmt.Fprintf(w, "Pending\t%d\n", stats.PendingCount)
			fmt.Fprintf(w, "Total withdrawn\t%s\n", naira(stats.TotalAmount))
			fmt.Fprintf(w, "Success rate\t%s%%\n", stats.SuccessRate.StringFixed(2))
			for _, m := range stats.MonthlyBreakdown {
				fmt.Fprintf(w, "  %s\t%d, %s\n", m.Month, m.Count, naira(m.TotalAmount))
			}
			return w.Flush()
		}),
	}
}

func printLimits(out io.Writer, limits *domain.WithdrawalLimits) {
	w := table(out)
	fmt.Fprintf(w, "Balance\t%s\n", naira(limits.WalletBalance))
	fmt.Fprintf(w, "Per withdrawal\t%s to %s\n", naira(limits.MinWithdrawal), naira(limits.MaxWithdrawal))
	fmt.Fprintf(w, "Today\t%s of %s used\n", naira(limits.DailyUsed), naira(limits.DailyLimit))
	fmt.Fprintf(w, "This month\t%s of %s used\n", naira(limits.MonthlyUsed), naira(limits.MonthlyLimit))
	if limits.HasPendingWithdrawal {
		fmt.Fprintln(w, "Pending\ta withdrawal is still being processed")
	}
	if !limits.CanWithdraw {
		fmt.Fprintln(w, "Withdrawals\tdisabled for this wallet")
	}
	w.Flush()
}

// describeError turns workflow errors into user facing exit errors.
// Business-rule refusals, local or from the server, print as a banner;
// validation failures list their fields.
func describeError(err error) error {
	if blocking(err) {
		return cli.Exit(banner(err.Error()), 1)
	}

	var gErr *domain.GatewayError
	if errors.As(err, &gErr) && len(gErr.Fields) > 0 {
		return cli.Exit(err.Error()+"\n  "+strings.Join(gErr.FieldMessages(), "\n  "), 1)
	}
	if errors.Is(err, domain.ErrAuth) {
		return cli.Exit("session expired, sign in again and pass a fresh --token", 3)
	}
	return cli.Exit(err.Error(), 1)
}

func blocking(err error) bool {
	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		return subErr.Blocking()
	}
	// local eligibility refusals match ErrBusinessRule too
	return errors.Is(err, domain.ErrBusinessRule)
}

func banner(message string) string {
	rule := strings.Repeat("=", 60)
	return fmt.Sprintf("%s\nWITHDRAWAL BLOCKED\n%s\n%s", rule, message, rule)
}

func table(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func naira(d decimal.Decimal) string {
	return "₦" + d.StringFixed(2)
}

