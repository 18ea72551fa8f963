package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Tag identifies the kind of a wire message.
type Tag string

// Tags understood by the rig firmware.
const (
	TagTemperature      Tag = "T"
	TagThermometerState Tag = "TSTATE"
	TagThermometerID    Tag = "TID"
	TagRelay            Tag = "R"
	TagBoot             Tag = "B"
	TagPWM              Tag = "P"
	TagAnalog           Tag = "A"
	TagAnalogReference  Tag = "AREF"
)

var knownTags = map[Tag]struct{}{
	TagTemperature:      {},
	TagThermometerState: {},
	TagThermometerID:    {},
	TagRelay:            {},
	TagBoot:             {},
	TagPWM:              {},
	TagAnalog:           {},
	TagAnalogReference:  {},
}

var (
	ErrMalformedLine = errors.New("malformed line")
	ErrUnknownTag    = errors.New("unknown tag")
)

// lineRE matches NAME:INDEX=VALUE over the whole line.
var lineRE = regexp.MustCompile(`^(.+):(\d+)=(.+)$`)

// Message is one parsed inbound line.
type Message struct {
	Tag   Tag
	Index int
	Value string
}

// Valid reports whether t is one of the known tags.
func (t Tag) Valid() bool {
	_, ok := knownTags[t]
	return ok
}

// Parse decodes a single line (without its newline terminator).
func Parse(line string) (Message, error) {
	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return Message{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		// digits only, so this is an overflow
		return Message{}, fmt.Errorf("%w: index %q: %v", ErrMalformedLine, m[2], err)
	}
	tag := Tag(m[1])
	if !tag.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTag, m[1])
	}
	return Message{Tag: tag, Index: idx, Value: m[3]}, nil
}

// String renders the message back into wire form.
func (m Message) String() string {
	return fmt.Sprintf("%s:%d=%s", m.Tag, m.Index, m.Value)
}

// FormatRelay builds the command switching relay idx.
func FormatRelay(idx int, on bool) string {
	v := 0
	if on {
		v = 1
	}
	return fmt.Sprintf("%s:%d=%d", TagRelay, idx, v)
}

// FormatPWM builds the command setting PWM output idx to a device-range value.
func FormatPWM(idx int, value float64) string {
	return fmt.Sprintf("%s:%d=%.2f", TagPWM, idx, value)
}

// Query builds the request asking the rig to report every channel of a kind.
func Query(tag Tag) string {
	return string(tag) + "?"
}
