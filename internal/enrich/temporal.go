package enrich

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wikivault/process-wiki/internal/chunk"
)

var (
	reYear        = regexp.MustCompile(`\b\d{4}\b`)
	reCharacterID = regexp.MustCompile(`[A-Za-z]-\d{4}\b`)
	reFileName    = regexp.MustCompile(`(?i)\d{4}\.(jpg|jpeg|png|gif|svg|ogg|webp|pdf)`)
)

// yearContextWindow is how many bytes of surrounding text are inspected
// for non-year keywords around a candidate year token.
const yearContextWindow = 60

// temporal scans text (plus infobox/template parameter values, passed in
// as extraText) for plausible in-universe years and derives the
// enriched temporal fields.
func temporal(text string, extraText []string) (period chunk.TimePeriod, yearMin, yearMax int, preWar, postWar bool, confidence float64) {
	excluded := excludedYearSpans(text)

	var years []int
	for _, loc := range reYear.FindAllStringIndex(text, -1) {
		if spanExcluded(loc, excluded) {
			continue
		}
		if hasNonYearContext(text, loc[0], loc[1]) {
			continue
		}
		y, err := strconv.Atoi(text[loc[0]:loc[1]])
		if err != nil {
			continue
		}
		if y < MinAcceptedYear || y > MaxAcceptedYear {
			continue
		}
		years = append(years, y)
	}

	for _, extra := range extraText {
		for _, m := range reYear.FindAllString(extra, -1) {
			y, err := strconv.Atoi(m)
			if err != nil {
				continue
			}
			if y < MinAcceptedYear || y > MaxAcceptedYear {
				continue
			}
			years = append(years, y)
		}
	}

	if len(years) == 0 {
		return chunk.TimePeriodUnknown, 0, 0, false, false, 0
	}

	yearMin, yearMax = years[0], years[0]
	for _, y := range years {
		if y < yearMin {
			yearMin = y
		}
		if y > yearMax {
			yearMax = y
		}
	}

	// is_pre_war holds when every observed year precedes the war, is_post_war
	// holds when every observed year follows it — both may be false for a
	// span that straddles the war exactly at the boundary years observed.
	preWar = yearMax < GreatWarYear
	postWar = yearMin > GreatWarYear

	period = eraFor(yearMax)
	confidence = confidenceForYearCount(len(years))
	return
}

func eraFor(year int) chunk.TimePeriod {
	switch {
	case year < GreatWarYear:
		return chunk.TimePeriodPreWar
	case year <= 2102:
		return chunk.TimePeriodEra2077
	case year <= 2160:
		return chunk.TimePeriodEra2103
	case year <= 2240:
		return chunk.TimePeriodEra2161
	case year <= 2286:
		return chunk.TimePeriodEra2241
	default:
		return chunk.TimePeriodEra2287
	}
}

func confidenceForYearCount(n int) float64 {
	switch {
	case n >= 3:
		return 0.95
	case n == 2:
		return 0.85
	default:
		return 0.7
	}
}

// excludedYearSpans finds character-id tokens (A-2018) and file-name
// tokens (2018.jpg) so their embedded digits are never mistaken for years.
func excludedYearSpans(text string) [][2]int {
	var spans [][2]int
	for _, loc := range reCharacterID.FindAllStringIndex(text, -1) {
		spans = append(spans, [2]int{loc[0], loc[1]})
	}
	for _, loc := range reFileName.FindAllStringIndex(text, -1) {
		spans = append(spans, [2]int{loc[0], loc[1]})
	}
	return spans
}

func spanExcluded(loc []int, excluded [][2]int) bool {
	for _, e := range excluded {
		if loc[0] >= e[0] && loc[1] <= e[1] {
			return true
		}
	}
	return false
}

// hasNonYearContext reports whether a window around [start,end) contains
// a publisher/developer-note keyword, meaning the year names a real-world
// citation rather than an in-universe date.
func hasNonYearContext(text string, start, end int) bool {
	lo := start - yearContextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + yearContextWindow
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:hi])
	for _, kw := range nonYearKeywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}
