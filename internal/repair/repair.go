package repair

// maxPasses bounds the fixed-point loop. Each rule settles its own match
// sites in one application, so a second pass finds nothing left to change.
const maxPasses = 32

// AppliedRule records how often a rule changed the text.
type AppliedRule struct {
	ID    string
	Title string
	Count int
}

// Result is the outcome of Apply.
type Result struct {
	Input   string
	Output  string
	Applied []AppliedRule
}

// Changed reports whether any rule changed the text.
func (r Result) Changed() bool { return r.Output != r.Input }

// Repair returns text with every rule applied until it stops changing.
func Repair(text string) string {
	return Apply(text).Output
}

// Apply repairs text and reports which rules fired, in rule order.
func Apply(text string) Result {
	counts := make([]int, len(rules))
	out := text
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for i, rule := range rules {
			next, n := rule.apply(out)
			if n == 0 || next == out {
				continue
			}
			counts[i] += n
			out = next
			changed = true
		}
		if !changed {
			break
		}
	}

	res := Result{Input: text, Output: out}
	for i, n := range counts {
		if n == 0 {
			continue
		}
		res.Applied = append(res.Applied, AppliedRule{ID: rules[i].ID, Title: rules[i].Title, Count: n})
	}
	return res
}
