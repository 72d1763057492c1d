package dtek

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page locations read by the extractor.
const (
	statusSelector       = "#showCurOutage"
	groupNameSelector    = "#group-name span"
	factUpdateSelector   = ".discon-fact-info .update"
	factUpdateHidden     = "form#discon_form input[name='updateFact']"
	activeDateSelector   = "#discon-fact .dates .date.active"
	dateSelector         = "#discon-fact .dates .date"
	weekTableSelector    = ".discon-schedule-table #tableRenderElem table"
	weekNoteSelector     = ".discon-schedule-table .discon-schedule-alert .discon-info-text"
	factFragmentSelector = "#discon-fact .discon-fact-table.active table"
	activeDayRowSelector = "#discon-fact .discon-fact-table.active table tbody tr"
	weekFragmentSelector = ".discon-schedule-table table"
)

// A schedule row is two metadata cells (day label, line marker) followed by one cell per hour.
const (
	rowMetaCells = 2
	rowCells     = rowMetaCells + HoursPerDay
)

// Either phrase means "there is no power right now".
var offMarkers = []string{
	"в даний момент відсутня електроенергія",
	"відсутня електроенергія",
}

var updatedAtPattern = regexp.MustCompile(`(?i)дата оновлення інформації\s*–\s*([0-9]{1,2}:[0-9]{2}\s+[0-9]{2}\.[0-9]{2}\.[0-9]{4})`)

// cellMarkers is checked in order and the first contained marker wins.
// "cell-scheduled-maybe" contains "cell-scheduled", so it must come first.
var cellMarkers = []struct {
	marker string
	state  HourCell
}{
	{"cell-non-scheduled", CellOn},
	{"cell-scheduled-maybe", CellOffMaybe},
	{"cell-first-half", CellOffFirstHalf},
	{"cell-second-half", CellOffSecondHalf},
	{"cell-scheduled", CellOff},
}

// CellClassToState maps a table cell's class attribute to an hour state.
func CellClassToState(class string) HourCell {
	for _, m := range cellMarkers {
		if strings.Contains(class, m.marker) {
			return m.state
		}
	}
	return CellUnknown
}

// offDetails are the emphasized fragments of an OFF notice.
type offDetails struct {
	reason, start, restore *string
}

// offDetailsFromEmphasis assigns the notice's <strong> fragments by position:
// reason, start time, restore time. The provider does not always fill all three.
func offDetailsFromEmphasis(emphasis []string) offDetails {
	at := func(i int) *string {
		if i < len(emphasis) {
			return optional(emphasis[i])
		}
		return nil
	}
	return offDetails{reason: at(0), start: at(1), restore: at(2)}
}

// ReadCurrentOutage classifies the status block. Without a block the status is UNKNOWN.
func ReadCurrentOutage(doc *goquery.Document) OutageStatus {
	box := doc.Find(statusSelector).First()
	if box.Length() == 0 {
		return OutageStatus{Status: StatusUnknown}
	}

	raw := innerText(box)
	text := strings.Join(strings.Fields(raw), " ")

	var updatedAt *string
	if m := updatedAtPattern.FindStringSubmatch(text); m != nil {
		updatedAt = &m[1]
	}

	if !isOffText(strings.ToLower(text)) {
		return OutageStatus{Status: StatusOn, UpdatedAt: updatedAt, Text: raw}
	}

	var emphasis []string
	box.Find("strong").Each(func(_ int, s *goquery.Selection) {
		emphasis = append(emphasis, strings.TrimSpace(s.Text()))
	})
	d := offDetailsFromEmphasis(emphasis)
	return OutageStatus{
		Status:    StatusOff,
		Reason:    d.reason,
		Start:     d.start,
		Restore:   d.restore,
		UpdatedAt: updatedAt,
		Text:      raw,
	}
}

// blockTags start and end a line in rendered text.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "table": true, "section": true, "header": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// innerText renders s the way a browser lays its text out: <br> and block
// element edges break lines, whitespace inside a line collapses, and blank
// lines are dropped.
func innerText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			switch name := goquery.NodeName(c); {
			case name == "#text":
				// Source newlines are layout whitespace, not line breaks.
				b.WriteString(strings.Map(func(r rune) rune {
					if r == '\n' || r == '\r' {
						return ' '
					}
					return r
				}, c.Text()))
			case name == "br":
				b.WriteByte('\n')
			case name == "script", name == "style", strings.HasPrefix(name, "#"):
			case blockTags[name]:
				b.WriteByte('\n')
				walk(c)
				b.WriteByte('\n')
			default:
				walk(c)
			}
		})
	}
	walk(s)

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isOffText(lower string) bool {
	for _, m := range offMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// decodeRow maps a full schedule row to 24 hours; short rows give nil.
func decodeRow(row *goquery.Selection) DaySchedule {
	cells := row.Find("td")
	if cells.Length() < rowCells {
		return nil
	}
	hours := make(DaySchedule, 0, HoursPerDay)
	cells.Slice(rowMetaCells, rowCells).Each(func(_ int, td *goquery.Selection) {
		class, _ := td.Attr("class")
		hours = append(hours, CellClassToState(class))
	})
	return hours
}

// ReadDaySchedule decodes the first row of the day table referenced by rel.
// A missing table or a short row means the day is not published yet.
func ReadDaySchedule(doc *goquery.Document, rel string) DaySchedule {
	if rel == "" {
		return nil
	}
	table := doc.Find(`#discon-fact .discon-fact-table[rel="` + rel + `"] table`).First()
	return decodeRow(table.Find("tbody tr").First())
}

// ReadTodayTomorrowRel returns the table references of the active (today)
// date tab and of the second tab (tomorrow).
func ReadTodayTomorrowRel(doc *goquery.Document) (today, tomorrow *string) {
	if rel, ok := doc.Find(activeDateSelector).First().Attr("rel"); ok {
		today = optional(rel)
	}
	if rel, ok := doc.Find(dateSelector).Eq(1).Attr("rel"); ok {
		tomorrow = optional(rel)
	}
	return today, tomorrow
}

// ReadWeekSchedule decodes every complete row of the week table. Placeholder
// rows for unpublished days are skipped. Nil when the table is absent.
func ReadWeekSchedule(doc *goquery.Document) WeekSchedule {
	table := doc.Find(weekTableSelector).First()
	if table.Length() == 0 {
		return nil
	}
	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		return nil
	}

	week := WeekSchedule{}
	rows.Each(func(_ int, row *goquery.Selection) {
		hours := decodeRow(row)
		if hours == nil {
			return
		}
		week = append(week, WeekDay{
			DayName: strings.TrimSpace(row.Find("td").First().Text()),
			Hours:   hours,
		})
	})
	return week
}

// ReadWeekNote returns the notice shown instead of (or above) the week table.
func ReadWeekNote(doc *goquery.Document) *string {
	return firstText(doc, weekNoteSelector)
}

func ReadGroupName(doc *goquery.Document) *string {
	return firstText(doc, groupNameSelector)
}

// ReadScheduleUpdatedAt prefers the visible label and falls back to the
// hidden form field the label is rendered from.
func ReadScheduleUpdatedAt(doc *goquery.Document) *string {
	if t := firstText(doc, factUpdateSelector); t != nil {
		return t
	}
	if v, ok := doc.Find(factUpdateHidden).First().Attr("value"); ok {
		return optional(v)
	}
	return nil
}

func firstText(doc *goquery.Document, sel string) *string {
	s := doc.Find(sel).First()
	if s.Length() == 0 {
		return nil
	}
	return optional(s.Text())
}

// Extract reads everything the result page offers except the resolved
// address, which lives in input values rather than markup. Fragment failures
// are returned as ErrExtractionDegraded errors and leave their fields nil.
func Extract(doc *goquery.Document, origin string) (*ScrapeResult, []error) {
	res := &ScrapeResult{
		Current:           ReadCurrentOutage(doc),
		GroupName:         ReadGroupName(doc),
		ScheduleUpdatedAt: ReadScheduleUpdatedAt(doc),
		Week:              ReadWeekSchedule(doc),
		WeekNote:          ReadWeekNote(doc),
	}

	res.Day.TodayRel, res.Day.TomorrowRel = ReadTodayTomorrowRel(doc)
	if res.Day.TodayRel != nil {
		res.Day.Today = ReadDaySchedule(doc, *res.Day.TodayRel)
	}
	if res.Day.TomorrowRel != nil {
		res.Day.Tomorrow = ReadDaySchedule(doc, *res.Day.TomorrowRel)
	}

	var degraded []error
	var err error
	if res.FactHTML, err = readFragment(doc, factFragmentSelector, origin); err != nil {
		degraded = append(degraded, err)
	}
	if res.WeekHTML, err = readFragment(doc, weekFragmentSelector, origin); err != nil {
		degraded = append(degraded, err)
	}
	return res, degraded
}
