package domain

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// PointID identifies a stored point. Exactly one of the numeric or textual
// forms is set; the zero value is Numeric(0).
type PointID struct {
	num     uint64
	text    string
	textual bool
}

func NumericID(n uint64) PointID { return PointID{num: n} }

func TextualID(s string) PointID { return PointID{text: s, textual: true} }

func (id PointID) IsTextual() bool { return id.textual }

// Numeric returns the numeric form; ok is false for textual ids.
func (id PointID) Numeric() (uint64, bool) { return id.num, !id.textual }

// Textual returns the textual form; ok is false for numeric ids.
func (id PointID) Textual() (string, bool) { return id.text, id.textual }

func (id PointID) String() string {
	if id.IsTextual() {
		return id.text
	}
	return strconv.FormatUint(id.num, 10)
}

// Key is an unambiguous storage key: "n:<digits>" or "s:<text>".
func (id PointID) Key() string {
	if id.IsTextual() {
		return "s:" + id.text
	}
	return "n:" + strconv.FormatUint(id.num, 10)
}

// ParsePointKey reverses Key.
func ParsePointKey(key string) (PointID, error) {
	if len(key) < 2 || key[1] != ':' {
		return PointID{}, errors.Errorf("invalid point key %q", key)
	}
	switch key[0] {
	case 'n':
		n, err := strconv.ParseUint(key[2:], 10, 64)
		if err != nil {
			return PointID{}, errors.Wrapf(err, "invalid numeric point key %q", key)
		}
		return NumericID(n), nil
	case 's':
		return TextualID(key[2:]), nil
	}
	return PointID{}, errors.Errorf("invalid point key %q", key)
}

func (id PointID) MarshalJSON() ([]byte, error) {
	if id.IsTextual() {
		return json.Marshal(id.text)
	}
	return []byte(strconv.FormatUint(id.num, 10)), nil
}

func (id *PointID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "decode textual point id")
		}
		*id = TextualID(s)
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return errors.Wrapf(err, "decode numeric point id %s", data)
	}
	*id = NumericID(n)
	return nil
}
