package cache

import "github.com/bwmarrin/snowflake"

// TagKind enumerates the cached read models that financial mutations touch.
// Tags are constructed through the functions below, never by string
// concatenation, so two call sites cannot disagree on a key.
type TagKind string

const (
	TagKindSchoolDashboard TagKind = "school_dashboard"
	TagKindStudentDues     TagKind = "student_dues"
	TagKindExamResults     TagKind = "exam_results"
)

// Tag identifies one invalidation scope.
type Tag struct {
	Kind     TagKind
	SchoolID snowflake.ID
	EntityID snowflake.ID
}

// Key renders the canonical cache key for this tag.
func (t Tag) Key() string {
	key := string(t.Kind) + ":" + t.SchoolID.String()
	if t.EntityID != 0 {
		key += ":" + t.EntityID.String()
	}
	return key
}

// SchoolDashboardTag covers tenant-wide aggregates (due totals, collections).
func SchoolDashboardTag(schoolID snowflake.ID) Tag {
	return Tag{Kind: TagKindSchoolDashboard, SchoolID: schoolID}
}

// StudentDuesTag covers one student's monthly due view.
func StudentDuesTag(schoolID, studentID snowflake.ID) Tag {
	return Tag{Kind: TagKindStudentDues, SchoolID: schoolID, EntityID: studentID}
}

// ExamResultsTag covers the published result listing of one exam.
func ExamResultsTag(schoolID, examID snowflake.ID) Tag {
	return Tag{Kind: TagKindExamResults, SchoolID: schoolID, EntityID: examID}
}
