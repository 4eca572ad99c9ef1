package cleaner

import (
	"database/sql"
	"strconv"

	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// NoSelection is the synthetic course assigned to students without a career path
var NoSelection = model.CourseRecord{
	CareerPathID:    0,
	CareerPathName:  "no selection",
	HoursToComplete: 0,
}

// CourseColumns is the column layout of the cleaned courses table
var CourseColumns = []model.Column{
	{Name: "career_path_id", DataType: converter.TypeInteger},
	{Name: "career_path_name", DataType: converter.TypeText},
	{Name: "hours_to_complete", DataType: converter.TypeInteger},
}

type courseKey struct {
	name  string
	hours int64
}

// CleanCourses drops rows with a missing id, name or hours value, removes
// repeated (name, hours) pairs keeping the first, then removes any row that
// would collide with the NoSelection course (id 0, or the same name and
// hours) and appends NoSelection. The result always holds exactly one course
// with id 0 and no repeated (name, hours) pair.
func CleanCourses(rows []model.RawCourse) ([]model.CourseRecord, []model.CleaningOperation) {
	var ops []model.CleaningOperation
	seen := make(map[courseKey]bool, len(rows))
	out := make([]model.CourseRecord, 0, len(rows)+1)

	for _, raw := range rows {
		if op, ok := missingCourseValue(raw); ok {
			ops = append(ops, op)
			continue
		}

		c := model.CourseRecord{
			CareerPathID:    raw.CareerPathID.Int64,
			CareerPathName:  raw.CareerPathName.String,
			HoursToComplete: raw.HoursToComplete.Int64,
		}
		key := courseKey{c.CareerPathName, c.HoursToComplete}
		if seen[key] {
			ops = append(ops, courseOp(c, model.OpDropRow, "duplicate_course"))
			continue
		}
		seen[key] = true
		out = append(out, c)
	}

	reserved := courseKey{NoSelection.CareerPathName, NoSelection.HoursToComplete}
	kept := out[:0]
	for _, c := range out {
		switch {
		case c.CareerPathID == NoSelection.CareerPathID:
			ops = append(ops, courseOp(c, model.OpDropRow, "reserved_career_path_id"))
		case courseKey{c.CareerPathName, c.HoursToComplete} == reserved:
			ops = append(ops, courseOp(c, model.OpDropRow, "reserved_career_path_name"))
		default:
			kept = append(kept, c)
		}
	}

	sentinel := courseOp(NoSelection, model.OpSentinelRow, "no_selection_course")
	sentinel.ColumnName = "*"
	sentinel.OriginalValue = nil
	sentinel.NewValue = NoSelection.CareerPathName
	ops = append(ops, sentinel)

	return append(kept, NoSelection), ops
}

// missingCourseValue reports the first NULL field of a raw course as a drop
func missingCourseValue(raw model.RawCourse) (model.CleaningOperation, bool) {
	op := model.CleaningOperation{
		TableName:     CoursesTable,
		OriginalValue: nullString(raw.CareerPathName),
		Operation:     model.OpDropRow,
	}
	if raw.CareerPathID.Valid {
		op.RowIdentifier = strconv.FormatInt(raw.CareerPathID.Int64, 10)
	}

	switch {
	case !raw.CareerPathID.Valid:
		op.ColumnName, op.Reason = "career_path_id", "missing_career_path_id"
	case !raw.CareerPathName.Valid:
		op.ColumnName, op.Reason = "career_path_name", "missing_career_path_name"
	case !raw.HoursToComplete.Valid:
		op.ColumnName, op.Reason = "hours_to_complete", "missing_hours_to_complete"
	default:
		return model.CleaningOperation{}, false
	}
	return op, true
}

func nullString(s sql.NullString) interface{} {
	if !s.Valid {
		return nil
	}
	return s.String
}

// CourseTable renders cleaned courses
func CourseTable(records []model.CourseRecord) *model.Table {
	table := model.NewTable(CoursesTable, CourseColumns)
	for _, c := range records {
		table.AppendRow(c.CareerPathID, c.CareerPathName, c.HoursToComplete)
	}
	return table
}

func courseOp(c model.CourseRecord, operation, reason string) model.CleaningOperation {
	return model.CleaningOperation{
		TableName:     CoursesTable,
		ColumnName:    "*",
		OriginalValue: c.CareerPathName,
		RowIdentifier: strconv.FormatInt(c.CareerPathID, 10),
		Operation:     operation,
		Reason:        reason,
	}
}
