package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finance/internal/core"
	applog "finance/internal/log"
)

// LogMirror writes ledger events to the log. It stands in for the Sheets
// mirror when no spreadsheet is configured.
type LogMirror struct {
	logger *applog.Logger
}

func NewLogMirror() *LogMirror {
	return &LogMirror{logger: applog.New(applog.Config{Component: applog.ComponentWorker, Handler: slog.Default().Handler()})}
}

func (m *LogMirror) AppendEntry(ctx context.Context, ev core.LedgerEvent) (string, error) {
	m.logger.InfoContext(ctx, "Ledger entry",
		applog.FieldEntryID, ev.EntryID,
		applog.FieldKind, ev.Kind,
		applog.FieldUserID, ev.UserID,
		applog.FieldAccountID, ev.AccountID,
		applog.FieldAmountCents, ev.Value.Cents,
		"date", ev.Date.Format("2006-01-02"))
	return fmt.Sprintf("log:%s:%d", ev.Kind, ev.EntryID), nil
}
