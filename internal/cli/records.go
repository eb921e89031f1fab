package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/dmitrijs2005/t3vo/internal/repositories/records"
)

const (
	unreadable = "<cannot decrypt>"
	masked     = "********"
)

// ParseOrder maps a sort name to records.Order. An empty name sorts by id.
func ParseOrder(s string) (records.Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id":
		return records.OrderByID, nil
	case "title":
		return records.OrderByTitle, nil
	case "updated":
		return records.OrderByUpdated, nil
	default:
		return 0, fmt.Errorf("unknown sort order %q (want id, title or updated)", s)
	}
}

// List prints id, title and update time of every record in c.
func (a *App) List(ctx context.Context, c models.Collection, order records.Order) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
	n := 0
	for m, err := range a.records.List(ctx, c, order) {
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Title, m.UpdatedAt.Local().Format(time.DateTime))
		n++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d %s\n", n, c)
	return nil
}

// Show prints one record. Secrets are masked unless reveal is set.
func (a *App) Show(ctx context.Context, c models.Collection, id string, reveal bool) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}

	rec, err := a.records.Read(ctx, a.session, c, id)
	if err != nil {
		return err
	}
	return printRecord(a.out, rec, reveal)
}

// Add prompts for a title and the payload fields of c and stores a new
// record.
func (a *App) Add(ctx context.Context, c models.Collection) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}

	title, err := GetSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	payload, err := a.promptPayload(c, nil)
	if err != nil {
		return err
	}

	rec, err := a.records.Create(ctx, a.session, c, title, payload)
	if err != nil {
		a.logger.Error(ctx, "cannot create record", "collection", c, "error", err)
		return err
	}
	fmt.Fprintf(a.out, "Added %s\n", rec.ID)
	return nil
}

// Edit prompts for new values, offering the current ones as defaults.
func (a *App) Edit(ctx context.Context, c models.Collection, id string) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}

	rec, err := a.records.Read(ctx, a.session, c, id)
	if err != nil {
		return err
	}
	if rec.Unreadable {
		return fmt.Errorf("%w: record %s", common.ErrDecryptionFailure, id)
	}
	cur, err := rec.Unwrap()
	if err != nil {
		return err
	}

	title, err := GetTextWithDefault(a.reader, "Title", rec.Title, a.out)
	if err != nil {
		return err
	}
	payload, err := a.promptPayload(c, cur)
	if err != nil {
		return err
	}

	if _, err := a.records.Update(ctx, a.session, c, id, title, payload); err != nil {
		a.logger.Error(ctx, "cannot update record", "collection", c, "id", id, "error", err)
		return err
	}
	fmt.Fprintf(a.out, "Updated %s\n", id)
	return nil
}

// Delete removes a record after confirmation. force skips the prompt.
func (a *App) Delete(ctx context.Context, c models.Collection, id string, force bool) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}

	if !force {
		answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete %s %s? [y/N]", c, id), a.out)
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(a.out, "Cancelled")
			return nil
		}
	}

	if err := a.records.Delete(ctx, c, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	return nil
}

// promptPayload asks for the fields of c. With a non-nil cur an empty answer
// keeps the current value.
func (a *App) promptPayload(c models.Collection, cur models.Payload) (models.Payload, error) {
	switch c {
	case models.Notes:
		n, _ := cur.(models.Note)
		content, err := GetMultiline(a.reader, "Content", a.out)
		if err != nil {
			return nil, err
		}
		if content == "" {
			content = n.Content
		}
		tags, err := GetTextWithDefault(a.reader, "Tags (comma separated)", strings.Join(n.Tags, ", "), a.out)
		if err != nil {
			return nil, err
		}
		return models.Note{Content: content, Tags: models.SplitList(tags)}, nil

	case models.Bookmarks:
		b, _ := cur.(models.Bookmark)
		url, err := GetTextWithDefault(a.reader, "URL", b.URL, a.out)
		if err != nil {
			return nil, err
		}
		note, err := GetTextWithDefault(a.reader, "Note", b.Note, a.out)
		if err != nil {
			return nil, err
		}
		return models.Bookmark{URL: url, Note: note}, nil

	case models.Passwords:
		p, _ := cur.(models.Password)
		username, err := GetTextWithDefault(a.reader, "Username", p.Username, a.out)
		if err != nil {
			return nil, err
		}
		email, err := GetTextWithDefault(a.reader, "Email", p.Email, a.out)
		if err != nil {
			return nil, err
		}
		password, err := a.secret("Password", p.Password)
		if err != nil {
			return nil, err
		}
		totp, err := a.secret("TOTP secret", p.TOTPSecret)
		if err != nil {
			return nil, err
		}
		urls, err := GetTextWithDefault(a.reader, "URLs (comma separated)", strings.Join(p.URLs, ", "), a.out)
		if err != nil {
			return nil, err
		}
		return models.Password{
			Username:   username,
			Email:      email,
			Password:   password,
			TOTPSecret: totp,
			URLs:       models.SplitList(urls),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownCollection, c)
	}
}

// secret reads a value without echo; empty input keeps def.
func (a *App) secret(prompt, def string) (string, error) {
	if def != "" {
		prompt += " (empty keeps current)"
	}
	b, err := GetPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return def, nil
	}
	return string(b), nil
}

func printRecord(w io.Writer, rec *models.Record, reveal bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", rec.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", rec.Title)
	fmt.Fprintf(tw, "Updated:\t%s\n", rec.UpdatedAt.Local().Format(time.DateTime))

	if rec.Unreadable {
		fmt.Fprintf(tw, "Payload:\t%s\n", unreadable)
		return tw.Flush()
	}

	p, err := rec.Unwrap()
	if err != nil {
		return err
	}

	hide := func(s string) string {
		if reveal || s == "" {
			return s
		}
		return masked
	}

	switch v := p.(type) {
	case models.Note:
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(v.Tags, ", "))
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%s\n", v.Content)
		return err
	case models.Bookmark:
		fmt.Fprintf(tw, "URL:\t%s\n", v.URL)
		fmt.Fprintf(tw, "Note:\t%s\n", v.Note)
	case models.Password:
		fmt.Fprintf(tw, "Username:\t%s\n", v.Username)
		fmt.Fprintf(tw, "Email:\t%s\n", v.Email)
		fmt.Fprintf(tw, "Password:\t%s\n", hide(v.Password))
		fmt.Fprintf(tw, "TOTP secret:\t%s\n", hide(v.TOTPSecret))
		fmt.Fprintf(tw, "URLs:\t%s\n", strings.Join(v.URLs, ", "))
	}
	return tw.Flush()
}
