package model

import (
	"database/sql"
	"time"
)

// RawStudent is a student row as loaded from the source, before cleaning.
// Numeric references are nullable floats so missing values survive decoding.
type RawStudent struct {
	UUID                string
	DOB                 string
	JobID               sql.NullFloat64
	CurrentCareerPathID sql.NullFloat64
	NumCourseTaken      sql.NullFloat64
	TimeSpentHrs        sql.NullFloat64
	ContactInfo         string
	MailingAddress      string
}

// RawCourse is a courses row as loaded from the source, before cleaning
type RawCourse struct {
	CareerPathID    sql.NullInt64
	CareerPathName  sql.NullString
	HoursToComplete sql.NullInt64
}

// RawJob is a jobs row as loaded from the source, before cleaning
type RawJob struct {
	JobID       sql.NullInt64
	JobCategory sql.NullString
	AvgSalary   sql.NullFloat64
}

// ContactInfo is the parsed form of the serialized contact_info mapping
type ContactInfo struct {
	Email          string
	Phone          string
	MailingAddress string
}

// Address is a mailing address split into its components
type Address struct {
	Street  string
	City    string
	State   string
	Zipcode string
}

// StudentRecord is a cleaned student
type StudentRecord struct {
	UUID                string
	DOB                 time.Time
	JobID               int64
	CurrentCareerPathID int64
	NumCourseTaken      int64
	TimeSpentHrs        float64
	Age                 int64
	AgeRange            int64
	Contact             ContactInfo
	Address             Address
}

// CourseRecord is a career path offered to students
type CourseRecord struct {
	CareerPathID    int64
	CareerPathName  string
	HoursToComplete int64
}

// JobRecord is a job category with its average salary
type JobRecord struct {
	JobID       int64
	JobCategory string
	AvgSalary   float64
}

// MergedRecord is one denormalized output row: a student joined with its
// career path and its job
type MergedRecord struct {
	Student StudentRecord
	Course  CourseRecord
	Job     JobRecord
}
