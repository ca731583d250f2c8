package services

import (
	"context"
	"fmt"
	"time"

	"storefront/backend/models"
)

// LectureView is a lecture as shown to one requester. Demo is a badge only;
// a completed enrollment already grants access to every lecture.
type LectureView struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	OrderIndex  int    `json:"order_index"`
	Demo        bool   `json:"demo"`
}

type LectureListing struct {
	CourseID uint          `json:"course_id"`
	Entitled bool          `json:"entitled"`
	Lectures []LectureView `json:"lectures"`
}

type EnrolledCourse struct {
	Course     models.Course `json:"course"`
	EnrolledAt time.Time     `json:"enrolled_at"`
}

// CatalogReader is a read-only projection of courses and lectures that gates
// non-demo lectures on a completed enrollment.
type CatalogReader struct {
	catalog     CatalogStore
	enrollments EnrollmentStore
	opts        Options
}

func NewCatalogReader(catalog CatalogStore, enrollments EnrollmentStore, opts Options) *CatalogReader {
	return &CatalogReader{catalog: catalog, enrollments: enrollments, opts: opts.withDefaults()}
}

func (r *CatalogReader) GetCourse(ctx context.Context, courseID uint) (models.Course, error) {
	course, err := r.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return models.Course{}, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return models.Course{}, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}
	return *course, nil
}

func (r *CatalogReader) ListCourses(ctx context.Context, level models.Level, page, pageSize int) ([]models.Course, int64, error) {
	courses, total, err := r.catalog.ListCourses(ctx, level, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

// Entitled reports whether the user holds a completed enrollment for the course.
func (r *CatalogReader) Entitled(ctx context.Context, userID, courseID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	enrollment, err := r.enrollments.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("check entitlement: %w", err)
	}
	return enrollment != nil && enrollment.Completed(), nil
}

// ListVisibleLectures returns the course's lectures by ascending order index.
// Anonymous and non-entitled requesters see demo lectures only.
func (r *CatalogReader) ListVisibleLectures(ctx context.Context, requesterID, courseID uint) (LectureListing, error) {
	if _, err := r.GetCourse(ctx, courseID); err != nil {
		return LectureListing{}, err
	}

	entitled, err := r.Entitled(ctx, requesterID, courseID)
	if err != nil {
		return LectureListing{}, err
	}

	lectures, err := r.catalog.ListLectures(ctx, courseID, !entitled)
	if err != nil {
		return LectureListing{}, fmt.Errorf("list visible lectures: %w", err)
	}

	listing := LectureListing{
		CourseID: courseID,
		Entitled: entitled,
		Lectures: make([]LectureView, 0, len(lectures)),
	}
	for _, l := range lectures {
		if !entitled && !l.IsDemo {
			continue
		}
		listing.Lectures = append(listing.Lectures, LectureView{
			ID:          l.ID,
			Title:       l.Title,
			Description: l.Description,
			Duration:    l.Duration,
			OrderIndex:  l.OrderIndex,
			Demo:        l.IsDemo,
		})
	}
	return listing, nil
}

// ListMyCourses returns the courses the user has paid for, most recently
// enrolled first. Pending enrollments are never included.
func (r *CatalogReader) ListMyCourses(ctx context.Context, userID uint) ([]EnrolledCourse, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	enrollments, err := r.enrollments.ListCompleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list my courses: %w", err)
	}
	if len(enrollments) == 0 {
		return []EnrolledCourse{}, nil
	}

	ids := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.CourseID)
	}
	courses, err := r.catalog.GetCourses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list my courses: %w", err)
	}
	byID := make(map[uint]models.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	out := make([]EnrolledCourse, 0, len(enrollments))
	for _, e := range enrollments {
		if !e.Completed() {
			continue
		}
		course, ok := byID[e.CourseID]
		if !ok {
			r.opts.Logger.Printf("completed enrollment id=%d references missing course %d", e.ID, e.CourseID)
			continue
		}
		out = append(out, EnrolledCourse{Course: course, EnrolledAt: e.EnrolledAt})
	}
	return out, nil
}
