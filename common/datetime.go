package common

//go:generate go run github.com/dmarkham/enumer -json -type DatetimeRange -trimprefix DatetimeRange -transform lower

// DatetimeRange is the granularity used to expand a date found in a filename into an interval
type DatetimeRange int

const (
	DatetimeRangeMonth DatetimeRange = iota
	DatetimeRangeYear
)
