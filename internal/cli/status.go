package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/buildinfo"
	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/dmitrijs2005/t3vo/internal/registry"
	"github.com/dmitrijs2005/t3vo/internal/repositories/metadata"
)

// Status prints the selected database, its schema version, record counts and
// backup history.
func (a *App) Status(ctx context.Context) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}

	version, err := a.db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	created, err := a.db.CreatedAt(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Database:\t%s\n", a.db.Name())
	fmt.Fprintf(tw, "Path:\t%s\n", a.db.Path())
	fmt.Fprintf(tw, "Schema version:\t%d\n", version)
	fmt.Fprintf(tw, "Created:\t%s\n", created.Local().Format(time.DateTime))

	for _, c := range models.Collections {
		n, err := a.records.Count(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s:\t%d\n", c, n)
	}

	meta, err := a.db.Metadata().List(ctx)
	if err != nil {
		return err
	}
	for _, k := range []struct{ label, key string }{
		{"Last backup", metadata.KeyLastBackupAt},
		{"Last restore", metadata.KeyLastImportAt},
	} {
		fmt.Fprintf(tw, "%s:\t%s\n", k.label, metaTime(meta[k.key]))
	}
	fmt.Fprintf(tw, "Auto-lock:\t%s\n", a.config.AutoLockTimeout)
	if err := tw.Flush(); err != nil {
		return err
	}

	buildinfo.PrintBuildData(a.out)
	return nil
}

// metaTime formats a stored timestamp; nil means the event never happened.
func metaTime(v []byte) string {
	if v == nil {
		return "never"
	}
	t, err := registry.ParseTime(v)
	if err != nil {
		return "unknown"
	}
	return t.Local().Format(time.DateTime)
}
