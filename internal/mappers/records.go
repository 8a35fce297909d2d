package mappers

import (
	"fmt"
	"strings"

	"course-dashboard/internal/domain"
	"course-dashboard/internal/providers/moodle"
)

// Competency combines a framework competency with the learner's rating
// (nil when unrated): proficient is completed, rated is in progress.
func Competency(c moodle.Competency, uc *moodle.UserCompetency) domain.CompetencyRecord {
	id := c.ID.Int()
	rec := domain.CompetencyRecord{
		ID:           id,
		ShortName:    firstNonEmpty(c.ShortName, c.IDNumber.String(), fmt.Sprintf("Competency %d", id)),
		FrameworkID:  c.CompetencyFrameworkID.Int(),
		UserProgress: 0,
		UserStatus:   domain.CompetencyNotStarted,
	}
	rec.Category = firstNonEmpty(c.Category, c.FrameworkShortName, fmt.Sprintf("Framework %d", rec.FrameworkID))

	if uc == nil {
		return rec
	}
	switch {
	case uc.Proficiency != nil && bool(*uc.Proficiency):
		rec.UserStatus = domain.CompetencyCompleted
		rec.UserProgress = 100
	case uc.Grade != nil && uc.Grade.Int() > 0:
		rec.UserStatus = domain.CompetencyInProgress
		rec.UserProgress = 50
	}
	return rec
}

// Badge maps a user badge. Badges returned for a user are awarded when they
// carry an issue date.
func Badge(b moodle.Badge) domain.BadgeRecord {
	rec := domain.BadgeRecord{
		ID:        b.ID.Int(),
		Name:      firstNonEmpty(b.Name, fmt.Sprintf("Badge %d", b.ID.Int())),
		Issuer:    strings.TrimSpace(b.IssuerName),
		AwardedAt: unixTime(b.DateIssued.Int()),
		ImageURL:  strings.TrimSpace(b.BadgeURL),
	}
	rec.IsAwarded = rec.AwardedAt != nil
	if b.CourseID != nil && b.CourseID.Int() > 0 {
		id := b.CourseID.Int()
		rec.CourseID = &id
	}
	return rec
}

func Profile(s moodle.SiteInfo) domain.Profile {
	full := firstNonEmpty(s.FullName, strings.TrimSpace(s.FirstName+" "+s.LastName), s.Username)
	return domain.Profile{
		UserID:     s.UserID.Int(),
		Username:   strings.TrimSpace(s.Username),
		FullName:   full,
		FirstName:  strings.TrimSpace(s.FirstName),
		LastName:   strings.TrimSpace(s.LastName),
		PictureURL: strings.TrimSpace(s.UserPictureURL),
		Lang:       strings.TrimSpace(s.Lang),
		SiteName:   strings.TrimSpace(s.SiteName),
	}
}
