package store

import (
	"context"
	"errors"
	"fmt"

	"storefront/backend/models"

	"gorm.io/gorm"
)

// GetCourse returns nil when the course does not exist.
func (s *Store) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course %d: %w", id, err)
	}
	return &course, nil
}

// GetCourses returns the courses with the given ids, in no particular order.
func (s *Store) GetCourses(ctx context.Context, ids []uint) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var courses []models.Course
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("get courses: %w", err)
	}
	return courses, nil
}

// ListCourses pages through the catalog, optionally filtered by level.
func (s *Store) ListCourses(ctx context.Context, level models.Level, page, pageSize int) ([]models.Course, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Course{})
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	var courses []models.Course
	if err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

func (s *Store) CreateCourse(ctx context.Context, course *models.Course) error {
	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// CreateLecture returns ErrDuplicate when the order index is taken in the course.
func (s *Store) CreateLecture(ctx context.Context, lecture *models.Lecture) error {
	if err := s.db.WithContext(ctx).Create(lecture).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

// ListLectures returns a course's lectures by ascending order index.
func (s *Store) ListLectures(ctx context.Context, courseID uint, demoOnly bool) ([]models.Lecture, error) {
	query := s.db.WithContext(ctx).Where("course_id = ?", courseID)
	if demoOnly {
		query = query.Where("is_demo = ?", true)
	}

	var lectures []models.Lecture
	if err := query.Order("order_index ASC").Find(&lectures).Error; err != nil {
		return nil, fmt.Errorf("list lectures for course %d: %w", courseID, err)
	}
	return lectures, nil
}
