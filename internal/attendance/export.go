package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/kozaktomas/attendai/internal/database"
)

// csvHeader is the first row of an attendance export.
var csvHeader = []string{"date", "period", "label", "class", "roll_no", "student", "status", "source"}

// WriteCSV writes attendance records as CSV, one row per record in the given order.
func WriteCSV(w io.Writer, records []database.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.DateString(),
			strconv.Itoa(rec.Period),
			PeriodLabel(rec.Period),
			rec.ClassName,
			rec.RollNo,
			rec.StudentName,
			string(rec.Status),
			string(rec.Source),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
