package cleaner

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/cancelled-subs/pkg/model"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func num(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func rawStudent(uuid string) model.RawStudent {
	return model.RawStudent{
		UUID:                uuid,
		DOB:                 "2000-01-01",
		JobID:               num(1),
		CurrentCareerPathID: num(1),
		NumCourseTaken:      num(2),
		TimeSpentHrs:        num(5),
		ContactInfo:         "{'email':'x@y.com', 'phone':'555-0100'}",
		MailingAddress:      "1 Main St,Springfield,IL,62701",
	}
}

func TestCleanStudents_FillsAndDerives(t *testing.T) {
	raw := rawStudent("a1")
	raw.CurrentCareerPathID = sql.NullFloat64{}
	raw.TimeSpentHrs = sql.NullFloat64{}

	result := CleanStudents([]model.RawStudent{raw}, testNow)
	require.Len(t, result.Records, 1)

	got := result.Records[0]
	assert.Equal(t, "a1", got.UUID)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), got.DOB)
	assert.Equal(t, int64(1), got.JobID)
	assert.Equal(t, int64(0), got.CurrentCareerPathID)
	assert.Equal(t, int64(2), got.NumCourseTaken)
	assert.Equal(t, 0.0, got.TimeSpentHrs)
	assert.Equal(t, int64(24), got.Age)
	assert.Equal(t, int64(20), got.AgeRange)
	assert.Equal(t, model.ContactInfo{Email: "x@y.com", Phone: "555-0100"}, got.Contact)
	assert.Equal(t, model.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zipcode: "62701"}, got.Address)

	require.Len(t, result.Operations, 2)
	assert.Equal(t, model.OpFillDefault, result.Operations[0].Operation)
	assert.Equal(t, "current_career_path_id", result.Operations[0].ColumnName)
	assert.Equal(t, "missing_career_path", result.Operations[0].Reason)
	assert.Equal(t, "time_spent_hrs", result.Operations[1].ColumnName)
}

func TestCleanStudents_DropsUnrecoverableRows(t *testing.T) {
	noCourses := rawStudent("b1")
	noCourses.NumCourseTaken = sql.NullFloat64{}

	noJob := rawStudent("b2")
	noJob.JobID = sql.NullFloat64{}

	badDOB := rawStudent("b3")
	badDOB.DOB = "someday"

	noUUID := rawStudent("")

	result := CleanStudents([]model.RawStudent{noCourses, noJob, badDOB, noUUID, rawStudent("ok")}, testNow)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "ok", result.Records[0].UUID)

	reasons := make([]string, 0, len(result.Operations))
	for _, op := range result.Operations {
		assert.Equal(t, model.OpDropRow, op.Operation)
		reasons = append(reasons, op.Reason)
	}
	assert.Equal(t, []string{"missing_num_course_taken", "missing_job_id", "invalid_dob", "missing_uuid"}, reasons)
}

func TestCleanStudents_DuplicateUUIDKeepsFirst(t *testing.T) {
	first := rawStudent("dup")
	second := rawStudent("dup")
	second.NumCourseTaken = num(9)

	result := CleanStudents([]model.RawStudent{first, second}, testNow)

	require.Len(t, result.Records, 1)
	assert.Equal(t, int64(2), result.Records[0].NumCourseTaken)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, "duplicate_uuid", result.Operations[0].Reason)
}

func TestCleanStudents_AddressFromContactInfo(t *testing.T) {
	raw := rawStudent("c1")
	raw.MailingAddress = ""
	raw.ContactInfo = `{"mailing_address": "303 N Timber Key, Irondale, Wisconsin, 84736", "email": "a@b.com"}`

	result := CleanStudents([]model.RawStudent{raw}, testNow)
	require.Len(t, result.Records, 1)

	assert.Equal(t, model.Address{
		Street: "303 N Timber Key", City: "Irondale", State: "Wisconsin", Zipcode: "84736",
	}, result.Records[0].Address)
	assert.Empty(t, result.Operations)
}

func TestCleanStudents_PartialAddressAndBadContact(t *testing.T) {
	raw := rawStudent("d1")
	raw.MailingAddress = "1 Main St,Springfield"
	raw.ContactInfo = "{'email': "

	result := CleanStudents([]model.RawStudent{raw}, testNow)
	require.Len(t, result.Records, 1)

	got := result.Records[0]
	assert.Equal(t, model.ContactInfo{}, got.Contact)
	assert.Equal(t, model.Address{Street: "1 Main St", City: "Springfield"}, got.Address)

	require.Len(t, result.Operations, 2)
	assert.Equal(t, "unparseable_contact_info", result.Operations[0].Reason)
	assert.Equal(t, model.OpPartialFill, result.Operations[1].Operation)
	assert.Equal(t, "malformed_mailing_address", result.Operations[1].Reason)
	assert.Equal(t, "1 Main St,Springfield,,", result.Operations[1].NewValue)
}

func TestAgeAndAgeRange(t *testing.T) {
	tests := []struct {
		dob      string
		wantAge  int64
		wantBand int64
	}{
		{"2000-01-01", 24, 20},
		{"1999-01-01", 25, 20}, // 2.5 rounds to even
		{"1989-01-01", 35, 40}, // 3.5 rounds to even
		{"1970-06-30", 54, 50},
		{"2023-12-31", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.dob, func(t *testing.T) {
			dob, err := time.Parse("2006-01-02", tt.dob)
			require.NoError(t, err)

			age := Age(dob, testNow)
			assert.Equal(t, tt.wantAge, age)
			assert.Equal(t, tt.wantBand, AgeRange(age))
		})
	}
}

func TestStudentTable_NoNullsNoDuplicates(t *testing.T) {
	missing := rawStudent("n1")
	missing.CurrentCareerPathID = sql.NullFloat64{}
	missing.TimeSpentHrs = sql.NullFloat64{}
	missing.ContactInfo = ""
	missing.MailingAddress = ""

	result := CleanStudents([]model.RawStudent{rawStudent("a"), missing, rawStudent("a"), rawStudent("b")}, testNow)
	table := StudentTable(result.Records)

	assert.Equal(t, 3, table.Len())
	assert.Len(t, table.Columns, len(StudentColumns))

	seen := make(map[string]bool)
	for _, row := range table.Rows {
		require.Len(t, row, len(StudentColumns))
		for _, v := range row {
			assert.NotNil(t, v)
		}
		uuid := row[0].(string)
		assert.False(t, seen[uuid], "duplicate uuid %s", uuid)
		seen[uuid] = true
	}
	assert.Equal(t, "2000-01-01", table.Value(0, "dob"))
}
