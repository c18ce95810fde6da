package console

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/platform/httpx"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	// Pending rows go first so the comment lands in order.
	s.csv.Flush()
	line = strings.TrimRight(line, "\r\n") + "\r\n"
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

// writeListCSV writes rows with one column per entry of cols.
func writeListCSV[T any](w io.Writer, title string, schema *liststate.Schema[T], cols []liststate.ColumnConfig, labels func(string) string, rows []T, v liststate.View[T]) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment("# List: " + title); err != nil {
		return err
	}
	if err := streamer.writeComment(fmt.Sprintf("# Search: %s | Sort: %s %s | Rows: %d", orNone(v.EffectiveSearch), v.Sort.OrderBy, v.Sort.Order, len(rows))); err != nil {
		return err
	}
	filters := make([]string, 0, len(v.Filters))
	for _, f := range v.Filters {
		filters = append(filters, fmt.Sprintf("%s %s [%s]", f.Key, f.Operator, strings.Join(f.Values, ",")))
	}
	if err := streamer.writeComment("# Filters: " + orNone(strings.Join(filters, "; "))); err != nil {
		return err
	}

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = labels(col.LabelKey)
	}
	if err := streamer.writeRow(header); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			record[i] = schema.Cell(row, col.ID)
		}
		if err := streamer.writeRow(record); err != nil {
			return err
		}
	}
	return streamer.Close()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// export streams every filtered and sorted row of the view, ignoring
// pagination.
func (h *Handler[T]) export(w http.ResponseWriter, r *http.Request) {
	_, ctrl, err := h.controller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	v := ctrl.View()
	if !v.Loaded {
		h.reload(r.Context(), ctrl)
		v = ctrl.View()
	}
	rows := ctrl.Rows()
	filename := fmt.Sprintf("%s-%s.csv", h.res.List(), time.Now().UTC().Format("20060102-1504"))

	httpx.Attachment(w, "text/csv; charset=utf-8", filename)
	if err := writeListCSV(w, h.def.Title, h.res.Schema(), h.exportColumns(v.Columns), h.deps.Catalog.Label, rows, v); err != nil {
		h.logger.Error("csv export failed", slog.Any("error", err))
	}
}
