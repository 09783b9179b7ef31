package dose

import (
	"fmt"
	"strings"
)

// Level is a categorical dose bucket. The zero value is not a valid level so
// that an unset Level is never mistaken for Low.
type Level byte

const (
	Invalid Level = iota
	Low
	Medium
	High
)

var levelNames = map[Level]string{
	Low:    "low",
	Medium: "medium",
	High:   "high",
}

// Levels returns every valid level in ascending order.
func Levels() []Level {
	return []Level{Low, Medium, High}
}

// LevelNames returns the names of Levels(), in the same order.
func LevelNames() []string {
	out := make([]string, 0, len(levelNames))
	for _, v := range Levels() {
		out = append(out, v.String())
	}

	return out
}

func (l Level) String() string {
	if name, exists := levelNames[l]; exists {
		return name
	}

	return fmt.Sprintf("Level(%d)", byte(l))
}

func (l Level) Valid() bool {
	_, exists := levelNames[l]
	return exists
}

func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}

	return Invalid, fmt.Errorf("unknown dose level %q (expected one of %s)", s, strings.Join(LevelNames(), ", "))
}

// MarshalText lets a Level serve as a JSON object key.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid dose level %d", byte(l))
	}

	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed

	return nil
}
