package audit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the timestamp layout used in audit lines
const TimeLayout = "2006-01-02 15:04:05"

// EventKind represents the category of audit record
type EventKind string

const (
	KindPermissionChange EventKind = "PERMISSION CHANGE"
	KindUserAdd          EventKind = "USER ADD"
	KindStatusToggle     EventKind = "USER STATUS TOGGLE"
)

// ErrMalformedLine is returned by ParseLine for lines that are not audit records
var ErrMalformedLine = errors.New("audit: malformed line")

// Field is one subject key/value pair of a record. Fields keep their order.
// A Null field has no value and is written as a bare null; a Value that reads
// "null" is quoted instead.
type Field struct {
	Key   string
	Value string
	Null  bool
}

// Record is a single audit entry describing one committed mutation
type Record struct {
	// ID correlates a record with diagnostics when it could not be written.
	// It is not part of the line format.
	ID        uuid.UUID
	Timestamp time.Time
	Kind      EventKind
	Fields    []Field
	Operator  string
}

func newRecord(kind EventKind, operator string, fields ...Field) *Record {
	return &Record{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Kind:      kind,
		Fields:    fields,
		Operator:  operator,
	}
}

// NewPermissionChange records a role permission being set
func NewPermissionChange(role, key string, value bool, operator string) *Record {
	return newRecord(KindPermissionChange, operator,
		Field{Key: "role", Value: role},
		Field{Key: "key", Value: key},
		Field{Key: "value", Value: strconv.FormatBool(value)},
	)
}

// NewUserAdd records a user being added or replaced. A nil clientID is
// written as null.
func NewUserAdd(user, role string, clientID *string, active bool, operator string) *Record {
	client := Field{Key: "client_id", Null: true}
	if clientID != nil {
		client = Field{Key: "client_id", Value: *clientID}
	}
	return newRecord(KindUserAdd, operator,
		Field{Key: "user", Value: user},
		Field{Key: "role", Value: role},
		client,
		Field{Key: "active", Value: strconv.FormatBool(active)},
	)
}

// NewStatusToggle records a user's active flag being set
func NewStatusToggle(user string, active bool, operator string) *Record {
	return newRecord(KindStatusToggle, operator,
		Field{Key: "user", Value: user},
		Field{Key: "active", Value: strconv.FormatBool(active)},
	)
}

// Field returns the value of the named subject field. Null fields report an
// empty value; use IsNull to tell them apart.
func (r *Record) Field(key string) (string, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// IsNull reports whether the named subject field is present and null
func (r *Record) IsNull(key string) bool {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Null
		}
	}
	return false
}

// Format renders the record as a single line without the trailing newline:
//
//	[2025-06-18 12:00:01] USER STATUS TOGGLE: user=bob active=false operator=alice
func (r *Record) Format() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(r.Timestamp.Format(TimeLayout))
	sb.WriteString("] ")
	sb.WriteString(string(r.Kind))
	sb.WriteByte(':')
	for _, f := range r.Fields {
		if f.Null {
			sb.WriteString(" " + f.Key + "=null")
			continue
		}
		writeField(&sb, f.Key, f.Value)
	}
	writeField(&sb, "operator", r.Operator)
	return sb.String()
}

func (r *Record) String() string { return r.Format() }

func writeField(sb *strings.Builder, key, value string) {
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(formatValue(value))
}

// formatValue quotes values that would otherwise break field splitting
func formatValue(v string) string {
	if v == "" || v == "null" || strings.ContainsAny(v, " \t\r\n\"=") {
		return strconv.Quote(v)
	}
	return v
}

// ParseLine parses a line written by Record.Format. The timestamp is read in
// local time. Parsed records carry no ID.
func ParseLine(line string) (*Record, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "[") {
		return nil, fmt.Errorf("%w: missing timestamp", ErrMalformedLine)
	}

	end := strings.Index(line, "] ")
	if end < 0 {
		return nil, fmt.Errorf("%w: unterminated timestamp", ErrMalformedLine)
	}
	ts, err := time.ParseInLocation(TimeLayout, line[1:end], time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	rest := line[end+2:]
	colon := strings.Index(rest, ":")
	if colon <= 0 {
		return nil, fmt.Errorf("%w: missing event kind", ErrMalformedLine)
	}

	rec := &Record{
		Timestamp: ts,
		Kind:      EventKind(rest[:colon]),
	}

	fields, err := parseFields(rest[colon+1:])
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Key == "operator" {
			rec.Operator = f.Value
			if f.Null {
				rec.Operator = "null"
			}
			continue
		}
		rec.Fields = append(rec.Fields, f)
	}

	return rec, nil
}

func parseFields(s string) ([]Field, error) {
	var fields []Field
	for {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return fields, nil
		}

		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("%w: field without value near %q", ErrMalformedLine, s)
		}
		key := s[:eq]
		s = s[eq+1:]

		var value string
		quotedValue := strings.HasPrefix(s, `"`)
		if quotedValue {
			quoted, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, fmt.Errorf("%w: bad quoted value for %s", ErrMalformedLine, key)
			}
			value, _ = strconv.Unquote(quoted)
			s = s[len(quoted):]
		} else if sp := strings.IndexByte(s, ' '); sp >= 0 {
			value, s = s[:sp], s[sp:]
		} else {
			value, s = s, ""
		}

		if !quotedValue && value == "null" {
			fields = append(fields, Field{Key: key, Null: true})
			continue
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
}
