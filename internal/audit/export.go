package audit

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"
)

const csvBufferSize = 32 * 1024

var csvHeader = []string{"id", "at", "actor_id", "action", "entity", "entity_id", "meta"}

// WriteCSV streams rows as CRLF-terminated CSV.
func WriteCSV(w io.Writer, rows []TimelineRow) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	out := csv.NewWriter(buf)
	out.UseCRLF = true
	if err := out.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			raw, err := json.Marshal(row.Meta)
			if err != nil {
				return err
			}
			meta = string(raw)
		}
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return err
	}
	return buf.Flush()
}
