package cleaner

import (
	"strconv"

	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// JobColumns is the column layout of the cleaned jobs table
var JobColumns = []model.Column{
	{Name: "job_id", DataType: converter.TypeInteger},
	{Name: "job_category", DataType: converter.TypeText},
	{Name: "avg_salary", DataType: converter.TypeReal},
}

type jobKey struct {
	category string
	salary   float64
}

// CleanJobs drops rows with a missing id, category or salary, then removes
// repeated (category, salary) pairs keeping the first
func CleanJobs(rows []model.RawJob) ([]model.JobRecord, []model.CleaningOperation) {
	var ops []model.CleaningOperation
	seen := make(map[jobKey]bool, len(rows))
	out := make([]model.JobRecord, 0, len(rows))

	for _, raw := range rows {
		op := model.CleaningOperation{
			TableName:     JobsTable,
			ColumnName:    "*",
			OriginalValue: nullString(raw.JobCategory),
			Operation:     model.OpDropRow,
		}
		if raw.JobID.Valid {
			op.RowIdentifier = strconv.FormatInt(raw.JobID.Int64, 10)
		}

		switch {
		case !raw.JobID.Valid:
			op.ColumnName, op.Reason = "job_id", "missing_job_id"
		case !raw.JobCategory.Valid:
			op.ColumnName, op.Reason = "job_category", "missing_job_category"
		case !raw.AvgSalary.Valid:
			op.ColumnName, op.Reason = "avg_salary", "missing_avg_salary"
		}
		if op.Reason != "" {
			ops = append(ops, op)
			continue
		}

		j := model.JobRecord{
			JobID:       raw.JobID.Int64,
			JobCategory: raw.JobCategory.String,
			AvgSalary:   raw.AvgSalary.Float64,
		}
		key := jobKey{j.JobCategory, j.AvgSalary}
		if seen[key] {
			op.Reason = "duplicate_job"
			ops = append(ops, op)
			continue
		}
		seen[key] = true
		out = append(out, j)
	}

	return out, ops
}

// JobTable renders cleaned jobs
func JobTable(records []model.JobRecord) *model.Table {
	table := model.NewTable(JobsTable, JobColumns)
	for _, j := range records {
		table.AppendRow(j.JobID, j.JobCategory, j.AvgSalary)
	}
	return table
}
