package assertion

// Severity controls whether a failing assertion gates the overall result.
type Severity string

const (
	// Required assertions must pass for the run to succeed.
	Required Severity = "required"
	// Advisory assertions are reported as warnings and never fail the run.
	Advisory Severity = "advisory"
)

// Op is the predicate applied to the value at an assertion's key path.
type Op string

const (
	// OpEq passes when the value at Path equals Want exactly.
	OpEq Op = "eq"
	// OpExists passes when Path is present, whatever its value.
	OpExists Op = "exists"
)

// Assertion is a single named, independent check against a configuration document.
type Assertion struct {
	ID          string
	Description string
	Path        string
	Op          Op
	Want        string
	Severity    Severity
}

// Outcome holds the result of evaluating one assertion.
type Outcome struct {
	Assertion Assertion
	Pass      bool
	Actual    string
	Message   string
}

// Report is the complete, immutable result of running all assertions once.
// OK is the logical AND of all required outcomes; advisory failures never
// affect it.
type Report struct {
	Outcomes []Outcome
	OK       bool
}

// FailedRequired counts failing required assertions.
func (r *Report) FailedRequired() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Pass && o.Assertion.Severity == Required {
			n++
		}
	}
	return n
}

// FailedAdvisory counts failing advisory assertions.
func (r *Report) FailedAdvisory() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Pass && o.Assertion.Severity == Advisory {
			n++
		}
	}
	return n
}

// Passed counts passing assertions of any severity.
func (r *Report) Passed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Pass {
			n++
		}
	}
	return n
}
