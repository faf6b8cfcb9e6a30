package pricing

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/robocupjunioraustralia/registration-billing/internal/entry"
	"github.com/robocupjunioraustralia/registration-billing/internal/program"
)

// BuildInput carries everything needed to itemise one invoice.
type BuildInput struct {
	Event program.Event

	// Settings supplies the surcharge line's name and description, read
	// live at build time (the amount itself is frozen on the event).
	Settings program.GlobalSettings

	// Items are the invoice's natural-scope entries.
	Items []entry.Entry

	// SchoolTeams are all teams of the invoice's school (or independent
	// mentor) for the event across every campus, creation time ascending.
	// The special rate tier is measured over this set, so a campus invoice
	// only receives the special rate for teams that fall inside the
	// school-wide first N.
	SchoolTeams []entry.Entry

	// OverrideItems are entries from other scopes redirected to this
	// invoice; they are always itemised one line per entry.
	OverrideItems []entry.Entry

	// Overrides maps division id to the event's division pricing override.
	Overrides map[uuid.UUID]program.AvailableDivision

	// Divisions supplies display names.
	Divisions map[uuid.UUID]program.Division
}

// Build produces the invoice's full line-item list: special rate tier,
// per-division (or per attendee-type) lines, redirected entries, and the
// surcharge line.
func Build(in BuildInput) []LineItem {
	var lines []LineItem
	if in.Event.EventType == program.EventTypeWorkshop {
		lines = buildWorkshopLines(in)
	} else {
		lines = buildCompetitionLines(in)
	}
	lines = append(lines, buildOverrideLines(in)...)
	if item, ok := surchargeLine(in, lines); ok {
		lines = append(lines, item)
	}
	return lines
}

func buildCompetitionLines(in BuildInput) []LineItem {
	var lines []LineItem
	incl := in.Event.EntryFeeIncludesGST
	items := in.Items

	if in.Event.HasSpecialRate() {
		n, fee := in.Event.SpecialRate()
		tier := specialTier(in.SchoolTeams, n)
		var special, standard []entry.Entry
		for _, e := range items {
			if tier[e.ID] {
				special = append(special, e)
			} else {
				standard = append(standard, e)
			}
		}
		if len(special) > 0 {
			name := fmt.Sprintf("First %d teams", n)
			desc := fmt.Sprintf("%s: first %d teams at the special rate", in.Event.Name, n)
			lines = append(lines, invoiceItem(name, desc, int32(len(special)), fee, UnitTeam, incl))
		}
		items = standard
	}

	groups := map[uuid.UUID][]entry.Entry{}
	for _, e := range items {
		groups[e.DivisionID] = append(groups[e.DivisionID], e)
	}
	for _, divID := range sortedDivisionIDs(groups, in.Divisions) {
		group := groups[divID]
		unitCost, unit := Resolve(in.Event, overrideFor(in.Overrides, divID))
		qty := quantityOf(group, unit)
		name := divisionName(in.Divisions, divID)
		desc := fmt.Sprintf("%s (%s)", in.Event.Name, name)
		lines = append(lines, invoiceItem(name, desc, qty, unitCost, unit, incl))
	}
	return lines
}

func buildWorkshopLines(in BuildInput) []LineItem {
	var lines []LineItem
	incl := in.Event.EntryFeeIncludesGST

	type key struct {
		div uuid.UUID
		typ entry.AttendeeType
	}
	groups := map[uuid.UUID][]entry.Entry{}
	byType := map[key]int32{}
	for _, e := range in.Items {
		groups[e.DivisionID] = append(groups[e.DivisionID], e)
		byType[key{e.DivisionID, e.AttendeeType}]++
	}
	for _, divID := range sortedDivisionIDs(groups, in.Divisions) {
		name := divisionName(in.Divisions, divID)
		for _, typ := range []entry.AttendeeType{entry.AttendeeTeacher, entry.AttendeeStudent} {
			count := byType[key{divID, typ}]
			if count == 0 {
				continue
			}
			fee := in.Event.WorkshopStudentFee
			if typ == entry.AttendeeTeacher {
				fee = in.Event.WorkshopTeacherFee
			}
			lineName := fmt.Sprintf("%s %ss", name, typ)
			desc := fmt.Sprintf("%s (%s)", in.Event.Name, name)
			lines = append(lines, invoiceItem(lineName, desc, count, fee, UnitAttendee, incl))
		}
	}
	return lines
}

// buildOverrideLines itemises entries redirected to this invoice one line per
// entry, named after the entry, never aggregated.
func buildOverrideLines(in BuildInput) []LineItem {
	incl := in.Event.EntryFeeIncludesGST
	items := append([]entry.Entry(nil), in.OverrideItems...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })

	var lines []LineItem
	for _, e := range items {
		switch e.Kind {
		case entry.KindTeam:
			unitCost, unit := Resolve(in.Event, overrideFor(in.Overrides, e.DivisionID))
			qty := int32(1)
			if unit == UnitStudent {
				qty = e.StudentCount
			}
			lines = append(lines, invoiceItem("Other teams", e.Name, qty, unitCost, unit, incl))
		default:
			fee := in.Event.WorkshopStudentFee
			if e.AttendeeType == entry.AttendeeTeacher {
				fee = in.Event.WorkshopTeacherFee
			}
			lines = append(lines, invoiceItem("Other attendees", e.Name, 1, fee, UnitAttendee, incl))
		}
	}
	return lines
}

// surchargeLine emits the per-item surcharge over every line whose unit cost
// is positive. The split is always computed as GST-inclusive regardless of
// the event's own flag.
func surchargeLine(in BuildInput, lines []LineItem) (LineItem, bool) {
	if !in.Event.SurchargeAmount.IsPositive() {
		return LineItem{}, false
	}
	var eligible int32
	for _, item := range lines {
		if item.UnitCost.IsPositive() {
			eligible += item.Quantity
		}
	}
	if eligible <= 0 {
		return LineItem{}, false
	}
	return invoiceItem(in.Settings.SurchargeName, in.Settings.SurchargeDescription, eligible, in.Event.SurchargeAmount, UnitItem, true), true
}

// specialTier returns the ids of the first n teams by creation time.
func specialTier(teams []entry.Entry, n int32) map[uuid.UUID]bool {
	sorted := append([]entry.Entry(nil), teams...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	tier := make(map[uuid.UUID]bool, n)
	for i, e := range sorted {
		if int32(i) >= n {
			break
		}
		tier[e.ID] = true
	}
	return tier
}

func quantityOf(group []entry.Entry, unit Unit) int32 {
	if unit == UnitStudent {
		var total int32
		for _, e := range group {
			total += e.StudentCount
		}
		return total
	}
	return int32(len(group))
}

func overrideFor(overrides map[uuid.UUID]program.AvailableDivision, divID uuid.UUID) *program.AvailableDivision {
	if ad, ok := overrides[divID]; ok {
		return &ad
	}
	return nil
}

func divisionName(divisions map[uuid.UUID]program.Division, divID uuid.UUID) string {
	if d, ok := divisions[divID]; ok && d.Name != "" {
		return d.Name
	}
	return divID.String()
}

func sortedDivisionIDs(groups map[uuid.UUID][]entry.Entry, divisions map[uuid.UUID]program.Division) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, nj := divisionName(divisions, ids[i]), divisionName(divisions, ids[j])
		if ni != nj {
			return ni < nj
		}
		return ids[i].String() < ids[j].String()
	})
	return ids
}
