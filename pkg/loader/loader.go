// Package loader reads the students, courses and jobs tables from the source
// database and decodes them into raw records.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/connector"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// Table roles, in positional fallback order
const (
	RoleStudents = "students"
	RoleCourses  = "courses"
	RoleJobs     = "jobs"
)

// ExpectedTableCount is the number of tables a source snapshot should hold
const ExpectedTableCount = 3

// roles lists each role with the name keyword and the columns that identify
// its table. Signatures are disjoint: the students table also carries job_id
// but never job_category.
var roles = []struct {
	name      string
	keyword   string
	signature []string
}{
	{RoleStudents, "student", []string{"uuid", "dob"}},
	{RoleCourses, "course", []string{"career_path_id", "career_path_name"}},
	{RoleJobs, "job", []string{"job_id", "job_category", "avg_salary"}},
}

// ErrMissingTable is returned when a role cannot be assigned to any source table
var ErrMissingTable = errors.New("source table missing")

// Snapshot is every table of the source, loaded in discovery order, with the
// three role tables picked out
type Snapshot struct {
	Tables []*model.Table

	students *model.Table
	courses  *model.Table
	jobs     *model.Table
}

// Load discovers and reads every table of the source database, then assigns
// the roles
func Load(ctx context.Context, conn connector.DatabaseConnector, logger *zap.Logger) (*Snapshot, error) {
	tables, err := LoadTables(ctx, conn, logger)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(tables)
}

// LoadTables reads every user table of the source in catalog order
func LoadTables(ctx context.Context, conn connector.DatabaseConnector, logger *zap.Logger) ([]*model.Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	names, err := conn.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover source tables: %w", err)
	}

	tables := make([]*model.Table, 0, len(names))
	for _, name := range names {
		table, err := conn.LoadTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load source table %s: %w", name, err)
		}
		tables = append(tables, table)
	}

	logger.Info("Loaded source tables",
		zap.String("database", conn.Name()),
		zap.Strings("tables", names))

	return tables, nil
}

// NewSnapshot assigns roles to already loaded tables, in three passes:
//  1. a table holding a role's identifying columns takes that role
//  2. a table named after a role takes it; the last role word in the name
//     decides, so "cademycode_student_jobs" is the jobs table
//  3. roles still open are filled from the remaining tables in order
func NewSnapshot(tables []*model.Table) (*Snapshot, error) {
	assigned := make(map[string]*model.Table, len(roles))
	used := make(map[int]bool, len(tables))

	assign := func(match func(role string, table *model.Table) bool) {
		for _, role := range roles {
			if assigned[role.name] != nil {
				continue
			}
			for i, table := range tables {
				if !used[i] && match(role.name, table) {
					assigned[role.name] = table
					used[i] = true
					break
				}
			}
		}
	}

	assign(func(role string, table *model.Table) bool { return signatureRole(table) == role })
	assign(func(role string, table *model.Table) bool { return nameRole(table.Name) == role })

	next := 0
	for _, role := range roles {
		if assigned[role.name] != nil {
			continue
		}
		for next < len(tables) && used[next] {
			next++
		}
		if next >= len(tables) {
			return nil, fmt.Errorf("%w: no table available for %s", ErrMissingTable, role.name)
		}
		assigned[role.name] = tables[next]
		used[next] = true
	}

	return &Snapshot{
		Tables:   tables,
		students: assigned[RoleStudents],
		courses:  assigned[RoleCourses],
		jobs:     assigned[RoleJobs],
	}, nil
}

// signatureRole returns the role whose identifying columns the table holds
func signatureRole(table *model.Table) string {
	for _, role := range roles {
		matched := true
		for _, column := range role.signature {
			if table.ColumnIndex(column) < 0 {
				matched = false
				break
			}
		}
		if matched {
			return role.name
		}
	}
	return ""
}

// nameRole returns the role named by the last role word of a table name
func nameRole(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for i := len(words) - 1; i >= 0; i-- {
		word := strings.TrimSuffix(words[i], "s")
		for _, role := range roles {
			if word == role.keyword {
				return role.name
			}
		}
	}
	return ""
}

// TableCount returns the number of tables found in the source
func (s *Snapshot) TableCount() int {
	return len(s.Tables)
}

// StudentTable returns the table assigned to the students role
func (s *Snapshot) StudentTable() *model.Table { return s.students }

// CourseTable returns the table assigned to the courses role
func (s *Snapshot) CourseTable() *model.Table { return s.courses }

// JobTable returns the table assigned to the jobs role
func (s *Snapshot) JobTable() *model.Table { return s.jobs }

// Students decodes the students table
func (s *Snapshot) Students() ([]model.RawStudent, error) {
	return DecodeStudents(s.students)
}

// Courses decodes the courses table
func (s *Snapshot) Courses() ([]model.RawCourse, error) {
	return DecodeCourses(s.courses)
}

// Jobs decodes the jobs table
func (s *Snapshot) Jobs() ([]model.RawJob, error) {
	return DecodeJobs(s.jobs)
}
