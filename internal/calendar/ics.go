package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/meeting-finder/internal/scheduler"
)

const productID = "-//meeting-finder//candidate slots//JA"

// ErrNoSlots is returned when there is nothing to encode.
var ErrNoSlots = errors.New("calendar: no slots to encode")

// EncodeSlots writes the candidate slots of a case as an iCalendar document.
// Each slot becomes a VEVENT carrying the hold marker and the case tag.
func EncodeSlots(w io.Writer, caseID, caseName string, slots []scheduler.Slot, stamp time.Time) error {
	if len(slots) == 0 {
		return ErrNoSlots
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for i, slot := range slots {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%d@meeting-finder", caseID, i+1))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, slot.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, slot.End.UTC())
		event.Props.SetText(ical.PropSummary, HoldMarker+caseName)
		event.Props.SetText(ical.PropDescription, CaseTag(caseID))
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	return nil
}
