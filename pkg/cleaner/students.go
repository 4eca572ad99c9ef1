// Package cleaner turns raw source rows into clean records. The cleaners are
// pure functions: they return the cleaned records together with the list of
// operations applied, and never touch a database. Recorder persists those
// operations.
package cleaner

import (
	"math"
	"time"

	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// Source table names used on recorded operations
const (
	StudentsTable = "students"
	CoursesTable  = "courses"
	JobsTable     = "jobs"
)

// dateLayout is how dates are rendered in output tables
const dateLayout = "2006-01-02"

// StudentColumns is the column layout of the cleaned students table
var StudentColumns = []model.Column{
	{Name: "uuid", DataType: converter.TypeText},
	{Name: "dob", DataType: converter.TypeText},
	{Name: "job_id", DataType: converter.TypeInteger},
	{Name: "num_course_taken", DataType: converter.TypeInteger},
	{Name: "current_career_path_id", DataType: converter.TypeInteger},
	{Name: "time_spent_hrs", DataType: converter.TypeReal},
	{Name: "age", DataType: converter.TypeInteger},
	{Name: "age_range", DataType: converter.TypeInteger},
	{Name: "email", DataType: converter.TypeText},
	{Name: "phone", DataType: converter.TypeText},
	{Name: "street", DataType: converter.TypeText},
	{Name: "city", DataType: converter.TypeText},
	{Name: "state", DataType: converter.TypeText},
	{Name: "zipcode", DataType: converter.TypeText},
}

// StudentResult is the output of CleanStudents
type StudentResult struct {
	Records    []model.StudentRecord
	Operations []model.CleaningOperation
}

// CleanStudents cleans raw student rows. now is the processing time used to
// derive age.
//
// Rows without a uuid, a parseable dob, a course count or a job reference are
// dropped. A missing career path becomes 0 (the "no selection" course) and
// missing hours become 0. Repeated uuids keep the first surviving row.
func CleanStudents(rows []model.RawStudent, now time.Time) StudentResult {
	var result StudentResult
	seen := make(map[string]bool, len(rows))

	drop := func(raw model.RawStudent, column string, original interface{}, reason string) {
		result.Operations = append(result.Operations, model.CleaningOperation{
			TableName:     StudentsTable,
			ColumnName:    column,
			OriginalValue: original,
			RowIdentifier: raw.UUID,
			Operation:     model.OpDropRow,
			Reason:        reason,
		})
	}

	for _, raw := range rows {
		if raw.UUID == "" {
			drop(raw, "uuid", nil, "missing_uuid")
			continue
		}

		dob, err := converter.ParseDate(raw.DOB)
		if err != nil {
			drop(raw, "dob", nullableString(raw.DOB), "invalid_dob")
			continue
		}

		if !raw.NumCourseTaken.Valid {
			drop(raw, "num_course_taken", nil, "missing_num_course_taken")
			continue
		}
		numCourses, ok := wholeNumber(raw.NumCourseTaken.Float64)
		if !ok {
			drop(raw, "num_course_taken", raw.NumCourseTaken.Float64, "invalid_num_course_taken")
			continue
		}

		if !raw.JobID.Valid {
			drop(raw, "job_id", nil, "missing_job_id")
			continue
		}
		jobID, ok := wholeNumber(raw.JobID.Float64)
		if !ok {
			drop(raw, "job_id", raw.JobID.Float64, "invalid_job_id")
			continue
		}

		if seen[raw.UUID] {
			drop(raw, "uuid", raw.UUID, "duplicate_uuid")
			continue
		}

		var ops []model.CleaningOperation

		var careerPathID int64
		if raw.CurrentCareerPathID.Valid {
			if careerPathID, ok = wholeNumber(raw.CurrentCareerPathID.Float64); !ok {
				drop(raw, "current_career_path_id", raw.CurrentCareerPathID.Float64, "invalid_career_path_id")
				continue
			}
		} else {
			ops = append(ops, fillDefault(raw.UUID, "current_career_path_id", "0", "missing_career_path"))
		}

		var hours float64
		if raw.TimeSpentHrs.Valid {
			hours = raw.TimeSpentHrs.Float64
		} else {
			ops = append(ops, fillDefault(raw.UUID, "time_spent_hrs", "0", "missing_time_spent"))
		}

		contact, err := ParseContactInfo(raw.ContactInfo)
		if err != nil {
			ops = append(ops, model.CleaningOperation{
				TableName:     StudentsTable,
				ColumnName:    "contact_info",
				OriginalValue: raw.ContactInfo,
				RowIdentifier: raw.UUID,
				Operation:     model.OpPartialFill,
				Reason:        "unparseable_contact_info",
			})
		}

		mailing := raw.MailingAddress
		if mailing == "" {
			mailing = contact.MailingAddress
		}
		address, ok := ParseAddress(mailing)
		if !ok {
			reason := "malformed_mailing_address"
			if mailing == "" {
				reason = "missing_mailing_address"
			}
			ops = append(ops, model.CleaningOperation{
				TableName:     StudentsTable,
				ColumnName:    "mailing_address",
				OriginalValue: nullableString(mailing),
				NewValue:      formatAddress(address),
				RowIdentifier: raw.UUID,
				Operation:     model.OpPartialFill,
				Reason:        reason,
			})
		}

		age := Age(dob, now)
		seen[raw.UUID] = true
		result.Records = append(result.Records, model.StudentRecord{
			UUID:                raw.UUID,
			DOB:                 dob,
			JobID:               jobID,
			CurrentCareerPathID: careerPathID,
			NumCourseTaken:      numCourses,
			TimeSpentHrs:        hours,
			Age:                 age,
			AgeRange:            AgeRange(age),
			Contact:             contact,
			Address:             address,
		})
		result.Operations = append(result.Operations, ops...)
	}

	return result
}

// Age returns whole years between dob and now: the elapsed whole days
// divided by 365, rounded half to even
func Age(dob, now time.Time) int64 {
	days := math.Floor(now.Sub(dob).Hours() / 24)
	return int64(math.RoundToEven(days / 365))
}

// AgeRange rounds an age to the nearest ten, half to even
func AgeRange(age int64) int64 {
	return int64(math.RoundToEven(float64(age)/10)) * 10
}

// StudentTable renders cleaned students in StudentColumns order
func StudentTable(records []model.StudentRecord) *model.Table {
	table := model.NewTable(StudentsTable, StudentColumns)
	for _, r := range records {
		table.AppendRow(StudentValues(r)...)
	}
	return table
}

// StudentValues returns a cleaned student's cells in StudentColumns order
func StudentValues(r model.StudentRecord) []interface{} {
	return []interface{}{
		r.UUID,
		r.DOB.Format(dateLayout),
		r.JobID,
		r.NumCourseTaken,
		r.CurrentCareerPathID,
		r.TimeSpentHrs,
		r.Age,
		r.AgeRange,
		r.Contact.Email,
		r.Contact.Phone,
		r.Address.Street,
		r.Address.City,
		r.Address.State,
		r.Address.Zipcode,
	}
}

func fillDefault(rowID, column, value, reason string) model.CleaningOperation {
	return model.CleaningOperation{
		TableName:     StudentsTable,
		ColumnName:    column,
		NewValue:      value,
		RowIdentifier: rowID,
		Operation:     model.OpFillDefault,
		Reason:        reason,
	}
}

func wholeNumber(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// nullableString maps "" to nil so recorded originals distinguish "missing"
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
