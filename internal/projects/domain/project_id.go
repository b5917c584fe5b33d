package domain

import "time"

const (
	projectIDLayout = "20060102150405"
	dateLayout      = "2006-01-02"
)

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

// NewProjectID derives a project id from the creation time, e.g. "20240131093005".
func NewProjectID(now time.Time) string {
	return now.Format(projectIDLayout)
}

// FormatDate renders the lastUpdatedDate value for now.
func FormatDate(now time.Time) string {
	return now.Format(dateLayout)
}
