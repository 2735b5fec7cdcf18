package admin

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/oggyb/gymbro-match/internal/repository"
)

var exportHeader = []string{
	"profile_id",
	"user_id",
	"telegram_id",
	"username",
	"first_name",
	"name",
	"gender",
	"age",
	"description",
	"media_count",
	"is_active",
	"created_at",
	"updated_at",
}

// WriteProfilesCSV writes rows as CSV with every field quoted.
func WriteProfilesCSV(w io.Writer, rows []repository.ExportRow) error {
	bw := bufio.NewWriter(w)
	if err := writeRecord(bw, exportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		p, u := row.Profile, row.User
		age := ""
		if p.Age != nil {
			age = strconv.Itoa(*p.Age)
		}
		rec := []string{
			strconv.FormatUint(p.ID, 10),
			strconv.FormatUint(p.UserID, 10),
			u.TelegramID,
			deref(u.Username),
			deref(u.FirstName),
			p.Name,
			string(p.Gender),
			age,
			p.Description,
			strconv.Itoa(len(p.Media)),
			strconv.FormatBool(p.IsActive),
			timestamp(p.CreatedAt),
			timestamp(p.UpdatedAt),
		}
		if err := writeRecord(bw, rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeRecord quotes every field; encoding/csv only quotes when it has to.
func writeRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
