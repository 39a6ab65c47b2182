package fovlog

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// Delimiter separates fields of a log line
	Delimiter = ";;"
	// TimeLayout is second resolution, local time
	TimeLayout = "2006-01-02 15:04:05"
	// NotAvailable is rendered for unavailable distances and sizes
	NotAvailable = "N/A"

	fieldsPerLine = 9
)

// ObjectID identifies a scene object for the lifetime of a tracking session.
// IDs are issued by the scene and never reused.
type ObjectID uint64

// String returns decimal representation of the identifier
func (id ObjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Distance from a detector's viewpoint. Negative values mean "unavailable".
type Distance float64

// NoDistance is the "unavailable" sentinel
const NoDistance Distance = -1

// Available reports whether distance holds a real measurement
func (d Distance) Available() bool {
	return d >= 0
}

// String renders distance with two decimals or N/A
func (d Distance) String() string {
	if !d.Available() {
		return NotAvailable
	}
	return strconv.FormatFloat(float64(d), 'f', 2, 64)
}

// Bytes is a size estimate. Negative values mean "unavailable".
type Bytes int64

// NoSize is the "unavailable" sentinel
const NoSize Bytes = -1

// Available reports whether size holds a real estimate
func (b Bytes) Available() bool {
	return b >= 0
}

// String renders size as integer or N/A
func (b Bytes) String() string {
	if !b.Available() {
		return NotAvailable
	}
	return strconv.FormatInt(int64(b), 10)
}

// LogRecord is a single visibility transition. Never mutated after creation.
type LogRecord struct {
	Time              time.Time `json:"time"`
	Observer          string    `json:"observer"`
	ObjectID          ObjectID  `json:"object_id"`
	ObjectName        string    `json:"object_name"`
	Immediate         bool      `json:"immediate"`
	Predicted         bool      `json:"predicted"`
	ImmediateDistance Distance  `json:"immediate_distance"`
	PredictedDistance Distance  `json:"predicted_distance"`
	Size              Bytes     `json:"size"`
	// Exit is set on synthetic records for objects which left the observable set
	Exit bool `json:"exit,omitempty"`
}

// Line renders record as a single log line without trailing newline
func (record LogRecord) Line() string {
	fields := [fieldsPerLine]string{
		record.Time.Local().Format(TimeLayout),
		record.Observer,
		record.ObjectID.String(),
		record.ObjectName,
		formatBool(record.Immediate),
		formatBool(record.Predicted),
		record.ImmediateDistance.String(),
		record.PredictedDistance.String(),
		record.Size.String(),
	}
	return strings.Join(fields[:], Delimiter)
}

// FormatBatch renders records as newline terminated lines, ready for a single append
func FormatBatch(records []LogRecord) []byte {
	var buf bytes.Buffer
	for i := range records {
		buf.WriteString(records[i].Line())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ParseLine decodes a log line produced by LogRecord.Line. Timestamps are read in local time.
// Object names containing the delimiter are supported since every other field has fixed position.
// Observer names must not contain the delimiter: such lines are split at the first one and every later field shifts.
// Exit is inferred from N/A in both distances and size, which only exit records carry.
func ParseLine(line string) (LogRecord, error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, Delimiter)
	if len(parts) < fieldsPerLine {
		return LogRecord{}, errors.Errorf("expected %d fields, got %d", fieldsPerLine, len(parts))
	}
	tail := parts[len(parts)-5:]
	record := LogRecord{
		Observer:   parts[1],
		ObjectName: strings.Join(parts[3:len(parts)-5], Delimiter),
	}
	var err error
	record.Time, err = time.ParseInLocation(TimeLayout, parts[0], time.Local)
	if err != nil {
		return LogRecord{}, errors.Wrap(err, "Can't parse timestamp")
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return LogRecord{}, errors.Wrapf(err, "Can't parse object id '%s'", parts[2])
	}
	record.ObjectID = ObjectID(id)
	if record.Immediate, err = parseBool(tail[0]); err != nil {
		return LogRecord{}, err
	}
	if record.Predicted, err = parseBool(tail[1]); err != nil {
		return LogRecord{}, err
	}
	if record.ImmediateDistance, err = parseDistance(tail[2]); err != nil {
		return LogRecord{}, err
	}
	if record.PredictedDistance, err = parseDistance(tail[3]); err != nil {
		return LogRecord{}, err
	}
	if tail[4] == NotAvailable {
		record.Size = NoSize
	} else {
		size, err := strconv.ParseInt(tail[4], 10, 64)
		if err != nil {
			return LogRecord{}, errors.Wrapf(err, "Can't parse size '%s'", tail[4])
		}
		record.Size = Bytes(size)
	}
	record.Exit = !record.ImmediateDistance.Available() && !record.PredictedDistance.Available() && !record.Size.Available()
	return record, nil
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func parseBool(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	return false, errors.Errorf("Can't parse boolean '%s'", s)
}

func parseDistance(s string) (Distance, error) {
	if s == NotAvailable {
		return NoDistance, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NoDistance, errors.Wrapf(err, "Can't parse distance '%s'", s)
	}
	return Distance(v), nil
}
