package idgen

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// eventNamespace scopes event UIDs to this application.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/flitsinc/go-calendar/events"))

const uidDomain = "@go-calendar"

// EventUID returns the stable iCalendar UID for row id of the calendar
// identified by calendarID. Row ids repeat across calendars, so both parts
// go into the name.
func EventUID(calendarID string, id int64) string {
	name := calendarID + "/" + strconv.FormatInt(id, 10)
	return uuid.NewSHA1(eventNamespace, []byte(name)).String() + uidDomain
}

// IsEventUID reports whether uid has the shape EventUID produces.
func IsEventUID(uid string) bool {
	base, ok := strings.CutSuffix(uid, uidDomain)
	if !ok {
		return false
	}
	_, err := uuid.Parse(base)
	return err == nil
}
