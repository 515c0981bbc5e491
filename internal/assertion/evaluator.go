package assertion

import (
	"fmt"

	"github.com/opencheck/opencheck/internal/document"
)

// Evaluate applies every assertion to the document in declared order and
// returns a fully populated report. Evaluation never fails: an absent key
// path on an equality check is a failing outcome, not an error, and no
// assertion's result depends on another's.
func Evaluate(doc *document.Document, assertions []Assertion) *Report {
	outcomes := make([]Outcome, 0, len(assertions))
	ok := true

	for _, a := range assertions {
		o := evaluateSingle(doc, a)
		outcomes = append(outcomes, o)
		if !o.Pass && a.Severity == Required {
			ok = false
		}
	}

	return &Report{Outcomes: outcomes, OK: ok}
}

func evaluateSingle(doc *document.Document, a Assertion) Outcome {
	switch a.Op {
	case OpExists:
		return evalExists(doc, a)
	case OpEq:
		return evalEq(doc, a)
	default:
		return Outcome{
			Assertion: a,
			Pass:      false,
			Message:   fmt.Sprintf("unknown assertion op: %s", a.Op),
		}
	}
}

func evalExists(doc *document.Document, a Assertion) Outcome {
	if !doc.Exists(a.Path) {
		return Outcome{
			Assertion: a,
			Pass:      false,
			Message:   fmt.Sprintf("%s: key path absent", a.Path),
		}
	}
	actual, _ := doc.String(a.Path)
	return Outcome{Assertion: a, Pass: true, Actual: actual}
}

func evalEq(doc *document.Document, a Assertion) Outcome {
	actual, ok := doc.String(a.Path)
	if !ok {
		return Outcome{
			Assertion: a,
			Pass:      false,
			Message:   fmt.Sprintf("%s: key path absent", a.Path),
		}
	}
	if actual != a.Want {
		return Outcome{
			Assertion: a,
			Pass:      false,
			Actual:    actual,
			Message:   fmt.Sprintf("expected %s=%q, found %s=%q", a.Path, a.Want, a.Path, actual),
		}
	}
	return Outcome{Assertion: a, Pass: true, Actual: actual}
}
