// Package merger joins cleaned students with their career path and job
package merger

import (
	"github.com/David-Botos/cancelled-subs/pkg/cleaner"
	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// MergedTableName names the in-memory merged table
const MergedTableName = "merged"

// Columns is the published column layout: the cleaned student columns
// followed by the course and job attributes
var Columns = append(append([]model.Column{}, cleaner.StudentColumns...),
	model.Column{Name: "career_path_name", DataType: converter.TypeText},
	model.Column{Name: "hours_to_complete", DataType: converter.TypeInteger},
	model.Column{Name: "job_category", DataType: converter.TypeText},
	model.Column{Name: "avg_salary", DataType: converter.TypeReal},
)

// Result is the output of Merge
type Result struct {
	Records []model.MergedRecord
	Dropped int // students without a matching course or job
}

// Merge inner joins students to courses on career path id and to jobs on
// job id. Student order is preserved. When an id appears more than once the
// first occurrence is used.
func Merge(students []model.StudentRecord, courses []model.CourseRecord, jobs []model.JobRecord) Result {
	courseByID := make(map[int64]model.CourseRecord, len(courses))
	for _, c := range courses {
		if _, ok := courseByID[c.CareerPathID]; !ok {
			courseByID[c.CareerPathID] = c
		}
	}

	jobByID := make(map[int64]model.JobRecord, len(jobs))
	for _, j := range jobs {
		if _, ok := jobByID[j.JobID]; !ok {
			jobByID[j.JobID] = j
		}
	}

	result := Result{Records: make([]model.MergedRecord, 0, len(students))}
	for _, s := range students {
		course, ok := courseByID[s.CurrentCareerPathID]
		if !ok {
			result.Dropped++
			continue
		}
		job, ok := jobByID[s.JobID]
		if !ok {
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, model.MergedRecord{
			Student: s,
			Course:  course,
			Job:     job,
		})
	}

	return result
}

// MergedTable renders merged records in Columns order
func MergedTable(records []model.MergedRecord) *model.Table {
	table := model.NewTable(MergedTableName, Columns)
	for _, r := range records {
		row := append(cleaner.StudentValues(r.Student),
			r.Course.CareerPathName,
			r.Course.HoursToComplete,
			r.Job.JobCategory,
			r.Job.AvgSalary,
		)
		table.AppendRow(row...)
	}
	return table
}
