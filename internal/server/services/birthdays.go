package services

import (
	"sort"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// nextBirthday returns the first anniversary of birthday on or after today.
// A Feb 29 birthday falls on Mar 1 in non-leap years.
func nextBirthday(birthday, today time.Time) time.Time {
	loc := today.Location()
	next := time.Date(today.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, loc)
	if next.Before(today) {
		next = time.Date(today.Year()+1, birthday.Month(), birthday.Day(), 0, 0, 0, 0, loc)
	}
	return next
}

// UpcomingBirthdays returns the contacts whose next birthday falls within
// [today, today+days], ordered by that date.
func UpcomingBirthdays(contacts []*models.Contact, now time.Time, days int) []*models.Contact {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	last := today.AddDate(0, 0, days)

	type entry struct {
		c    *models.Contact
		next time.Time
	}

	var matched []entry
	for _, c := range contacts {
		next := nextBirthday(c.Birthday.Time, today)
		if !next.After(last) {
			matched = append(matched, entry{c: c, next: next})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].next.Before(matched[j].next)
	})

	result := make([]*models.Contact, 0, len(matched))
	for _, m := range matched {
		result = append(result, m.c)
	}
	return result
}
