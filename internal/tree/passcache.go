package tree

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"course-dashboard/internal/providers"
	"course-dashboard/internal/providers/moodle"
)

// PassCache shares course listings and course contents between the
// categories of one aggregation pass. Concurrent requests for the same key
// are collapsed; only successes are kept, so a category retry refetches.
type PassCache struct {
	providers.LMS

	group singleflight.Group

	mu       sync.Mutex
	site     *moodle.SiteInfo
	courses  map[int][]moodle.Course
	contents map[int][]moodle.Section
}

func NewPassCache(lms providers.LMS) *PassCache {
	return &PassCache{
		LMS:      lms,
		courses:  map[int][]moodle.Course{},
		contents: map[int][]moodle.Section{},
	}
}

func (p *PassCache) ListUserCourses(ctx context.Context, userID int) ([]moodle.Course, error) {
	p.mu.Lock()
	if v, ok := p.courses[userID]; ok {
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("courses:"+strconv.Itoa(userID), func() (any, error) {
		p.mu.Lock()
		if v, ok := p.courses[userID]; ok {
			p.mu.Unlock()
			return v, nil
		}
		p.mu.Unlock()
		out, err := p.LMS.ListUserCourses(ctx, userID)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.courses[userID] = out
		p.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]moodle.Course), nil
}

func (p *PassCache) CourseContents(ctx context.Context, courseID int) ([]moodle.Section, error) {
	p.mu.Lock()
	if v, ok := p.contents[courseID]; ok {
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("contents:"+strconv.Itoa(courseID), func() (any, error) {
		p.mu.Lock()
		if v, ok := p.contents[courseID]; ok {
			p.mu.Unlock()
			return v, nil
		}
		p.mu.Unlock()
		out, err := p.LMS.CourseContents(ctx, courseID)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.contents[courseID] = out
		p.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]moodle.Section), nil
}

func (p *PassCache) SiteInfo(ctx context.Context) (moodle.SiteInfo, error) {
	p.mu.Lock()
	if p.site != nil {
		v := *p.site
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("site", func() (any, error) {
		out, err := p.LMS.SiteInfo(ctx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.site = &out
		p.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return moodle.SiteInfo{}, err
	}
	return v.(moodle.SiteInfo), nil
}
