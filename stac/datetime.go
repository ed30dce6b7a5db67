package stac

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/events"
	"github.com/araddon/dateparse"
)

// Datetimes is either a single datetime or an interval
type Datetimes struct {
	Single     *time.Time
	Start, End *time.Time
}

func (d Datetimes) apply(properties map[string]any) {
	if d.Single != nil {
		properties[common.PropDatetime] = formatDatetime(*d.Single)
		return
	}
	properties[common.PropDatetime] = nil
	properties[common.PropStartDatetime] = formatDatetime(*d.Start)
	properties[common.PropEndDatetime] = formatDatetime(*d.End)
}

func formatDatetime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type filenameDateStrategy struct {
	re     *regexp.Regexp
	layout string
}

// Dates found in the filenames, by order of precedence
var filenameDateStrategies = []filenameDateStrategy{
	{regexp.MustCompile(`_(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
	{regexp.MustCompile(`_(\d{8})`), "20060102"},
	{regexp.MustCompile(`_(\d{6})`), "200601"},
	{regexp.MustCompile(`_(\d{4})`), "2006"},
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0).Add(-time.Second)
}

func endOfYear(t time.Time) time.Time {
	return time.Date(t.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

// expand returns the interval (month or year) containing t
func expand(t time.Time, r common.DatetimeRange) Datetimes {
	var start, end time.Time
	switch r {
	case common.DatetimeRangeYear:
		start, end = startOfYear(t), endOfYear(t)
	default:
		start, end = startOfMonth(t), endOfMonth(t)
	}
	return Datetimes{Start: &start, End: &end}
}

// findDates returns the dates found in the filename with the first strategy that matches.
// A date must not be followed by another digit.
func findDates(filename string) ([]time.Time, error) {
	for _, s := range filenameDateStrategies {
		var dates []time.Time
		for _, idx := range s.re.FindAllStringSubmatchIndex(filename, -1) {
			if idx[1] < len(filename) && filename[idx[1]] >= '0' && filename[idx[1]] <= '9' {
				continue
			}
			d, err := time.Parse(s.layout, filename[idx[2]:idx[3]])
			if err != nil {
				return nil, fmt.Errorf("findDates: %w", err)
			}
			dates = append(dates, d)
		}
		if len(dates) > 0 {
			return dates, nil
		}
	}
	return nil, nil
}

// filenameDatetimes extracts the datetimes from the name of the file
func filenameDatetimes(fileurl string, datetimeRange *common.DatetimeRange) (Datetimes, error) {
	filename := path.Base(fileurl)
	dates, err := findDates(filename)
	if err != nil {
		return Datetimes{}, err
	}
	switch len(dates) {
	case 0:
		return Datetimes{}, fmt.Errorf("no date found in %s", filename)
	case 1:
		if datetimeRange != nil {
			return expand(dates[0], *datetimeRange), nil
		}
		return Datetimes{Single: &dates[0]}, nil
	case 2:
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		return Datetimes{Start: &dates[0], End: &dates[1]}, nil
	}
	return Datetimes{}, fmt.Errorf("too many dates found in %s: %d", filename, len(dates))
}

// regexDatetimes extracts the datetime from the target groups of the regex,
// that must match from the start of the url
func regexDatetimes(fileurl string, dr events.DatetimeRegex, datetimeRange *common.DatetimeRange) (Datetimes, error) {
	re, err := regexp.Compile(dr.Regex)
	if err != nil {
		return Datetimes{}, fmt.Errorf("regexDatetimes: %w", err)
	}
	idx := re.FindStringSubmatchIndex(fileurl)
	if idx == nil || idx[0] != 0 {
		return Datetimes{}, fmt.Errorf("%s does not match %s", fileurl, dr.Regex)
	}
	elements := make([]string, 0, len(dr.TargetGroup))
	for _, g := range dr.TargetGroup {
		if g < 0 || 2*g+1 >= len(idx) {
			return Datetimes{}, fmt.Errorf("target group %d out of range [0, %d]", g, len(idx)/2-1)
		}
		if idx[2*g] < 0 {
			return Datetimes{}, fmt.Errorf("target group %d did not participate in the match", g)
		}
		elements = append(elements, fileurl[idx[2*g]:idx[2*g+1]])
	}
	t, err := dateparse.ParseIn(strings.Join(elements, "-"), time.UTC)
	if err != nil {
		return Datetimes{}, fmt.Errorf("regexDatetimes: %w", err)
	}
	if datetimeRange != nil {
		return expand(t, *datetimeRange), nil
	}
	return Datetimes{Single: &t}, nil
}

// eventDatetimes returns the datetimes of the item, by order of precedence:
// single_datetime, start/end_datetime, datetime_regex, dates in the filename
func eventDatetimes(ev *events.RegexEvent) (Datetimes, error) {
	switch {
	case ev.SingleDatetime != nil:
		return Datetimes{Single: ev.SingleDatetime}, nil
	case ev.StartDatetime != nil && ev.EndDatetime != nil:
		return Datetimes{Start: ev.StartDatetime, End: ev.EndDatetime}, nil
	case ev.DatetimeRegex != nil:
		return regexDatetimes(ev.RemoteFileURL, *ev.DatetimeRegex, ev.DatetimeRange)
	default:
		return filenameDatetimes(ev.RemoteFileURL, ev.DatetimeRange)
	}
}
