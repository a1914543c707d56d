package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finance/internal/auth"
	"finance/internal/core"
	"finance/internal/services"
	"finance/internal/storage"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	rootCmd.AddCommand(obligationsCmd)
	obligationsCmd.AddCommand(obligationsListCmd)
	obligationsCmd.AddCommand(obligationsPayCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(tokenCmd)

	obligationsPayCmd.Flags().String("amount", "", "Pay a different amount, e.g. 12.50")
	obligationsPayCmd.Flags().String("date", "", "Booking date (YYYY-MM-DD), defaults to the due date")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		version, err := storage.RunMigrations(cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.SQLiteDBPath, version)
		return nil
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with their balances",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		accounts, err := a.balances.Accounts(cmd.Context(), userID)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tBALANCE")
		for _, acc := range accounts {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", acc.Account.ID, acc.Account.Name, acc.Balance)
		}
		return tw.Flush()
	}),
}

var obligationsCmd = &cobra.Command{
	Use:     "obligations",
	Aliases: []string{"scheduled"},
	Short:   "Inspect and pay scheduled obligations",
}

var obligationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled obligations, newest first",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		list, err := a.obligations.List(cmd.Context(), userID)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tAMOUNT\tNEXT\tSCHEDULE\tDESCRIPTION")
		for _, o := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				o.ID, o.Kind(), o.Value, o.NextDate.Format(time.DateOnly), schedule(o.Repeat), o.Description)
		}
		return tw.Flush()
	}),
}

func schedule(r *core.RepeatPolicy) string {
	switch {
	case r == nil:
		return "once"
	case r.Infinite:
		return fmt.Sprintf("every %d %s", r.Interval, r.Frequency)
	}
	return fmt.Sprintf("every %d %s (%d/%d)", r.Interval, r.Frequency, r.Count, r.EndAfter)
}

var obligationsPayCmd = &cobra.Command{
	Use:   "pay ID",
	Short: "Materialize the next occurrence of an obligation",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var in services.PaymentInput
		if s, _ := cmd.Flags().GetString("amount"); s != "" {
			if in.Value, err = core.ParseMoney(s); err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
		}
		if s, _ := cmd.Flags().GetString("date"); s != "" {
			if in.Date, err = time.Parse(time.DateOnly, s); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD")
			}
		}

		res, err := a.obligations.Pay(cmd.Context(), userID, id, in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Recorded %s %d\n", res.Entry.Kind, res.Entry.ID())
		if res.Retired {
			fmt.Fprintf(out, "Obligation %d retired\n", id)
		} else {
			fmt.Fprintf(out, "Obligation %d next due %s\n", id, res.Obligation.NextDate.Format(time.DateOnly))
		}
		return nil
	}),
}

var balanceCmd = &cobra.Command{
	Use:   "balance ACCOUNT_ID",
	Short: "Print the balance of one account",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		balance, err := a.balances.AccountBalance(cmd.Context(), id, userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), balance)
		return nil
	}),
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for --user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer).Issue(userID, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
