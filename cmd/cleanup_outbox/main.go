package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
	"github.com/light-bringer/procat-editor/internal/models/m_outbox"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
	"github.com/light-bringer/procat-editor/internal/pkg/query"
)

// Config holds the retention windows for the outbox cleanup job.
type Config struct {
	SpannerDB              string
	CompletedRetentionDays int
	FailedRetentionDays    int
	HistoryRetentionDays   int
	DryRun                 bool
}

func main() {
	config := Config{}
	flag.StringVar(&config.SpannerDB, "database", os.Getenv("SPANNER_DATABASE"), "Spanner database (format: projects/PROJECT/instances/INSTANCE/databases/DATABASE)")
	flag.IntVar(&config.CompletedRetentionDays, "completed-retention", 30, "Retention days for completed events")
	flag.IntVar(&config.FailedRetentionDays, "failed-retention", 90, "Retention days for failed events")
	flag.IntVar(&config.HistoryRetentionDays, "history-retention", 180, "Retention days for unrelayed section save history (0 keeps everything)")
	flag.BoolVar(&config.DryRun, "dry-run", false, "Show what would be deleted without deleting")
	flag.Parse()

	logger := logging.New(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if config.SpannerDB == "" {
		logger.Error("-database flag is required")
		os.Exit(2)
	}

	if err := cleanupOutbox(context.Background(), logger, config); err != nil {
		logger.Error("cleanup failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("cleanup completed")
}

// retentionRule selects outbox rows that are past their retention window.
type retentionRule struct {
	name  string
	query *query.Builder
}

func retentionRules(now time.Time, config Config) []retentionRule {
	cutoff := func(days int) time.Time { return now.AddDate(0, 0, -days) }

	rules := []retentionRule{
		{
			name: m_outbox.StatusCompleted,
			query: query.From(m_outbox.TableName).
				Where(query.Eq(m_outbox.Status, m_outbox.StatusCompleted)).
				Where(query.Lt(m_outbox.ProcessedAt, cutoff(config.CompletedRetentionDays))),
		},
		{
			name: m_outbox.StatusFailed,
			query: query.From(m_outbox.TableName).
				Where(query.Eq(m_outbox.Status, m_outbox.StatusFailed)).
				Where(query.Lt(m_outbox.ProcessedAt, cutoff(config.FailedRetentionDays))),
		},
	}
	if config.HistoryRetentionDays > 0 {
		rules = append(rules, retentionRule{
			name: "history",
			query: query.From(m_outbox.TableName).
				Where(query.Eq(m_outbox.Status, m_outbox.StatusPending)).
				Where(query.Eq(m_outbox.EventType, (&domain.SectionSavedEvent{}).EventType())).
				Where(query.Lt(m_outbox.CreatedAt, cutoff(config.HistoryRetentionDays))),
		})
	}
	return rules
}

func (r retentionRule) countStatement() spanner.Statement {
	return r.query.Count().Build()
}

// deleteStatement turns the rule's count query into DML over the same
// predicate and parameters.
func (r retentionRule) deleteStatement() spanner.Statement {
	stmt := r.countStatement()
	stmt.SQL = "DELETE FROM" + strings.TrimPrefix(stmt.SQL, "SELECT COUNT(*) FROM")
	return stmt
}

func cleanupOutbox(ctx context.Context, logger *slog.Logger, config Config) error {
	client, err := spanner.NewClient(ctx, config.SpannerDB)
	if err != nil {
		return fmt.Errorf("failed to create Spanner client: %w", err)
	}
	defer client.Close()

	rules := retentionRules(time.Now().UTC(), config)
	logger.Info("starting outbox cleanup",
		slog.Int("completed_retention_days", config.CompletedRetentionDays),
		slog.Int("failed_retention_days", config.FailedRetentionDays),
		slog.Int("history_retention_days", config.HistoryRetentionDays),
		slog.Bool("dry_run", config.DryRun),
	)

	if config.DryRun {
		return dryRunCleanup(ctx, logger, client, rules)
	}
	return performCleanup(ctx, logger, client, rules)
}

func countRows(ctx context.Context, q interface {
	Query(context.Context, spanner.Statement) *spanner.RowIterator
}, stmt spanner.Statement) (int64, error) {
	iter := q.Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	var count int64
	if err := row.Columns(&count); err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return count, nil
}

func dryRunCleanup(ctx context.Context, logger *slog.Logger, client *spanner.Client, rules []retentionRule) error {
	ro := client.ReadOnlyTransaction()
	defer ro.Close()

	var total int64
	for _, rule := range rules {
		count, err := countRows(ctx, ro, rule.countStatement())
		if err != nil {
			return fmt.Errorf("%s: %w", rule.name, err)
		}
		logger.Info("would delete events", slog.String("rule", rule.name), slog.Int64("count", count))
		total += count
	}
	logger.Info("dry run finished", slog.Int64("total", total))
	return nil
}

func performCleanup(ctx context.Context, logger *slog.Logger, client *spanner.Client, rules []retentionRule) error {
	for _, rule := range rules {
		log := logger.With(slog.String("rule", rule.name))

		_, err := client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
			count, err := countRows(ctx, txn, rule.countStatement())
			if err != nil {
				return err
			}
			if count == 0 {
				log.Info("no old events to delete")
				return nil
			}

			deleted, err := txn.Update(ctx, rule.deleteStatement())
			if err != nil {
				return fmt.Errorf("failed to delete events: %w", err)
			}
			log.Info("deleted events", slog.Int64("count", deleted))
			return nil
		})
		if err != nil {
			return fmt.Errorf("cleanup of %s events failed: %w", rule.name, err)
		}
	}
	return nil
}
