package dose

import (
	"encoding/json"
	"testing"
)

func TestClassify(t *testing.T) {
	c := DefaultClassifier()

	for _, v := range []struct {
		Conc     float64
		Expected Level
		OK       bool
	}{
		{5, Low, true},
		{30, Medium, true},
		{100, High, true},
		{17, Invalid, false},
		{0, Invalid, false},
		{5.0000001, Invalid, false},
	} {
		l, ok := c.Classify(v.Conc)
		if ok != v.OK || l != v.Expected {
			t.Errorf("%v: expected (%s, %t), got (%s, %t)", v.Conc, v.Expected, v.OK, l, ok)
		}
	}
}

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping("1=low, 2.5=medium,10=HIGH")
	if err != nil {
		t.Fatal(err)
	}

	c := NewClassifier(m)
	if got, expected := c.String(), "1=low,2.5=medium,10=high"; got != expected {
		t.Fatalf("Expected %q, got %q", expected, got)
	}

	for _, bad := range []string{"", "5", "x=low", "5=extreme", "5=low,5=high"} {
		if _, err := ParseMapping(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestClassifierCopiesMapping(t *testing.T) {
	m := DefaultMapping()
	c := NewClassifier(m)
	m[17] = Low

	if _, ok := c.Classify(17); ok {
		t.Fatal("Classifier should not observe later edits to its source mapping")
	}
}

func TestLevelJSONKey(t *testing.T) {
	b, err := json.Marshal(map[Level]int{High: 3, Low: 1, Medium: 2})
	if err != nil {
		t.Fatal(err)
	}

	if got, expected := string(b), `{"high":3,"low":1,"medium":2}`; got != expected {
		t.Fatalf("Expected %s, got %s", expected, got)
	}

	if _, err := Invalid.MarshalText(); err == nil {
		t.Fatal("Expected an error marshaling an invalid level")
	}
}
