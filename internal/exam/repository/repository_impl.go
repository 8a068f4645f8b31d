package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campusbooks/internal/exam/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertExam(ctx context.Context, db *gorm.DB, exam *domain.Exam) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO exams (
			id, school_id, name, term, academic_year, result_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exam.ID,
		exam.SchoolID,
		exam.Name,
		exam.Term,
		exam.AcademicYear,
		exam.ResultStatus,
		exam.CreatedAt,
		exam.UpdatedAt,
	).Error
}

func (r *repo) FindExam(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.Exam, error) {
	var exam domain.Exam
	err := db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&exam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *repo) ListExams(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]domain.Exam, error) {
	var exams []domain.Exam
	err := db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("id desc").
		Find(&exams).Error
	if err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *repo) UpdateResultStatus(ctx context.Context, db *gorm.DB, schoolID, examID snowflake.ID, from, to domain.ResultStatus) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE exams
		 SET result_status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE school_id = ? AND id = ? AND result_status = ?`,
		to, schoolID, examID, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertSchedule(ctx context.Context, db *gorm.DB, schedule *domain.ExamSchedule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO exam_schedules (
			id, school_id, exam_id, class_id, subject, exam_date, max_marks
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		schedule.ID,
		schedule.SchoolID,
		schedule.ExamID,
		schedule.ClassID,
		schedule.Subject,
		schedule.ExamDate,
		schedule.MaxMarks,
	).Error
}

func (r *repo) InsertComponent(ctx context.Context, db *gorm.DB, component *domain.ScheduleComponent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO exam_schedule_components (
			id, school_id, schedule_id, name, max_marks
		) VALUES (?, ?, ?, ?, ?)`,
		component.ID,
		component.SchoolID,
		component.ScheduleID,
		component.Name,
		component.MaxMarks,
	).Error
}

func (r *repo) ListSchedules(ctx context.Context, db *gorm.DB, schoolID, examID snowflake.ID) ([]domain.ExamSchedule, error) {
	var schedules []domain.ExamSchedule
	err := db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_schedule_components.id asc")
		}).
		Where("school_id = ? AND exam_id = ?", schoolID, examID).
		Order("id asc").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *repo) FindSchedule(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.ExamSchedule, error) {
	var schedule domain.ExamSchedule
	err := db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_schedule_components.id asc")
		}).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *repo) FindComponent(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.ScheduleComponent, error) {
	var component domain.ScheduleComponent
	err := db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&component).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &component, nil
}

func (r *repo) FindResult(ctx context.Context, db *gorm.DB, schoolID, componentID, studentID snowflake.ID) (*domain.ComponentResult, error) {
	var result domain.ComponentResult
	err := db.WithContext(ctx).
		Where("school_id = ? AND component_id = ? AND student_id = ?", schoolID, componentID, studentID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repo) InsertResult(ctx context.Context, db *gorm.DB, result *domain.ComponentResult) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO component_results (
			id, school_id, schedule_id, component_id, student_id, marks, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.SchoolID,
		result.ScheduleID,
		result.ComponentID,
		result.StudentID,
		result.Marks,
		result.CreatedAt,
		result.UpdatedAt,
	).Error
}

func (r *repo) UpdateResultMarks(ctx context.Context, db *gorm.DB, result *domain.ComponentResult) error {
	return db.WithContext(ctx).Exec(
		`UPDATE component_results
		 SET marks = ?, updated_at = ?
		 WHERE school_id = ? AND id = ?`,
		result.Marks,
		result.UpdatedAt,
		result.SchoolID,
		result.ID,
	).Error
}

func (r *repo) StudentResults(ctx context.Context, db *gorm.DB, schoolID, examID, studentID snowflake.ID) ([]domain.ComponentResult, error) {
	var results []domain.ComponentResult
	err := db.WithContext(ctx).Raw(
		`SELECT cr.* FROM component_results cr
		 JOIN exam_schedules es ON es.id = cr.schedule_id
		 WHERE cr.school_id = ? AND es.exam_id = ? AND cr.student_id = ?
		 ORDER BY cr.id ASC`,
		schoolID, examID, studentID,
	).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repo) ReplaceGradeBands(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, bands []domain.GradeBand) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM grade_bands WHERE school_id = ?`, schoolID,
	).Error; err != nil {
		return err
	}
	for i := range bands {
		b := bands[i]
		err := db.WithContext(ctx).Exec(
			`INSERT INTO grade_bands (id, school_id, grade, min_percent, max_percent)
			 VALUES (?, ?, ?, ?, ?)`,
			b.ID, b.SchoolID, b.Grade, b.MinPercent, b.MaxPercent,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) GradeBands(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]domain.GradeBand, error) {
	var bands []domain.GradeBand
	err := db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("min_percent asc").
		Find(&bands).Error
	if err != nil {
		return nil, err
	}
	return bands, nil
}
