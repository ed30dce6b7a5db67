package common

//go:generate go run github.com/dmarkham/enumer -json -type Status -trimprefix Status

// Status of the handling of a file
type Status int

const (
	StatusDONE Status = iota
	StatusFAILED
	StatusRETRY
)
