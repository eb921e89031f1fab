package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/t3vo/internal/backup"
	"github.com/dmitrijs2005/t3vo/internal/models"
)

// Backup targets.
const (
	TargetFile = "file"
	TargetS3   = "s3"
)

func (a *App) sink(ctx context.Context, target string) (backup.Sink, error) {
	switch strings.ToLower(target) {
	case "", TargetFile:
		return backup.FileSink{Dir: a.config.Backup.Dir}, nil
	case TargetS3:
		return a.newS3Sink(ctx, a.config.Backup.S3)
	default:
		return nil, fmt.Errorf("unknown backup target %q (want %s or %s)", target, TargetFile, TargetS3)
	}
}

// Backup exports the unlocked database to target. An empty name gets a
// timestamped default.
func (a *App) Backup(ctx context.Context, target, name string) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}
	sink, err := a.sink(ctx, target)
	if err != nil {
		return err
	}
	if name == "" {
		name = backup.DefaultName(a.db, a.now())
	}

	stats, err := backup.Export(ctx, a.db, a.codec, a.session, sink, name, a.now())
	if err != nil {
		a.logger.Error(ctx, "backup failed", "target", target, "error", err)
		return err
	}
	a.logger.Info(ctx, "backup written", "target", target, "name", stats.Name, "records", stats.Total())
	fmt.Fprintf(a.out, "Backup %s written (%s)\n", stats.Name, formatStats(stats))
	return nil
}

// Restore imports a backup of the unlocked database from target.
func (a *App) Restore(ctx context.Context, target, name string) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}
	sink, err := a.sink(ctx, target)
	if err != nil {
		return err
	}

	stats, err := backup.Import(ctx, a.db, a.codec, a.session, sink, name, a.now())
	if err != nil {
		a.logger.Error(ctx, "restore failed", "target", target, "name", name, "error", err)
		return err
	}
	a.logger.Info(ctx, "backup restored", "target", target, "name", stats.Name, "records", stats.Total())
	fmt.Fprintf(a.out, "Restored %s (%s)\n", stats.Name, formatStats(stats))
	return nil
}

// Backups lists the archives available at target. Backups of other databases
// are listed too; only the unlocking passphrase can restore them.
func (a *App) Backups(ctx context.Context, target string) error {
	sink, err := a.sink(ctx, target)
	if err != nil {
		return err
	}
	names, err := sink.List(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(a.out, n)
	}
	fmt.Fprintf(a.out, "%d backup(s)\n", len(names))
	return nil
}

func formatStats(s backup.Stats) string {
	parts := make([]string, 0, len(s.Collections))
	for _, c := range models.Collections {
		parts = append(parts, fmt.Sprintf("%s: %d", c, s.Collections[c]))
	}
	return strings.Join(parts, ", ")
}
