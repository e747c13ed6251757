package pagemd

import "fmt"

// sprintValue renders a frontmatter property value to a comparable string.
// Kept as its own function (rather than inlined in diff.go) so both Compute
// and any future property-diffing caller share one normalization rule.
func sprintValue(v any) string {
	return fmt.Sprint(v)
}
