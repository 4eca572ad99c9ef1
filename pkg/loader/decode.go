package loader

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// ErrMissingColumn is returned when a role table lacks a required column
var ErrMissingColumn = errors.New("required column missing")

// columnIndexes resolves required columns by name
func columnIndexes(table *model.Table, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		i := table.ColumnIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, table.Name, name)
		}
		idx[name] = i
	}
	return idx, nil
}

// DecodeStudents converts the students table into raw records. Numeric
// references become nullable floats. The mailing_address column is optional;
// some snapshots only carry the address inside contact_info.
func DecodeStudents(table *model.Table) ([]model.RawStudent, error) {
	idx, err := columnIndexes(table,
		"uuid", "dob", "job_id", "current_career_path_id",
		"num_course_taken", "time_spent_hrs", "contact_info")
	if err != nil {
		return nil, err
	}
	addrIdx := table.ColumnIndex("mailing_address")

	out := make([]model.RawStudent, 0, table.Len())
	for r, row := range table.Rows {
		raw := model.RawStudent{
			UUID:        cellString(row[idx["uuid"]]),
			DOB:         cellString(row[idx["dob"]]),
			ContactInfo: cellString(row[idx["contact_info"]]),
		}
		if addrIdx >= 0 {
			raw.MailingAddress = cellString(row[addrIdx])
		}

		if raw.JobID, err = converter.ToNullFloat(row[idx["job_id"]]); err != nil {
			return nil, decodeError(table, r, "job_id", err)
		}
		if raw.CurrentCareerPathID, err = converter.ToNullFloat(row[idx["current_career_path_id"]]); err != nil {
			return nil, decodeError(table, r, "current_career_path_id", err)
		}
		if raw.NumCourseTaken, err = converter.ToNullFloat(row[idx["num_course_taken"]]); err != nil {
			return nil, decodeError(table, r, "num_course_taken", err)
		}
		if raw.TimeSpentHrs, err = converter.ToNullFloat(row[idx["time_spent_hrs"]]); err != nil {
			return nil, decodeError(table, r, "time_spent_hrs", err)
		}

		out = append(out, raw)
	}
	return out, nil
}

// DecodeCourses converts the courses table into raw course rows. NULL cells
// stay invalid so the cleaner can drop and record them.
func DecodeCourses(table *model.Table) ([]model.RawCourse, error) {
	idx, err := columnIndexes(table, "career_path_id", "career_path_name", "hours_to_complete")
	if err != nil {
		return nil, err
	}

	out := make([]model.RawCourse, 0, table.Len())
	for r, row := range table.Rows {
		rec := model.RawCourse{CareerPathName: cellNullString(row[idx["career_path_name"]])}
		if rec.CareerPathID, err = converter.ToNullInt(row[idx["career_path_id"]]); err != nil {
			return nil, decodeError(table, r, "career_path_id", err)
		}
		if rec.HoursToComplete, err = converter.ToNullInt(row[idx["hours_to_complete"]]); err != nil {
			return nil, decodeError(table, r, "hours_to_complete", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeJobs converts the jobs table into raw job rows
func DecodeJobs(table *model.Table) ([]model.RawJob, error) {
	idx, err := columnIndexes(table, "job_id", "job_category", "avg_salary")
	if err != nil {
		return nil, err
	}

	out := make([]model.RawJob, 0, table.Len())
	for r, row := range table.Rows {
		rec := model.RawJob{JobCategory: cellNullString(row[idx["job_category"]])}
		if rec.JobID, err = converter.ToNullInt(row[idx["job_id"]]); err != nil {
			return nil, decodeError(table, r, "job_id", err)
		}
		if rec.AvgSalary, err = converter.ToNullFloat(row[idx["avg_salary"]]); err != nil {
			return nil, decodeError(table, r, "avg_salary", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func cellString(v interface{}) string {
	if converter.IsNull(v) {
		return ""
	}
	return converter.ToString(v)
}

func cellNullString(v interface{}) sql.NullString {
	if converter.IsNull(v) {
		return sql.NullString{}
	}
	return sql.NullString{String: converter.ToString(v), Valid: true}
}

func decodeError(table *model.Table, row int, column string, err error) error {
	return fmt.Errorf("failed to decode %s row %d column %s: %w", table.Name, row, column, err)
}
