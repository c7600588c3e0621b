package pipeline

import (
	"fmt"
	"strings"
)

// requiredSections are the headers every final result must contain, in the
// order the generation prompt demands them.
var requiredSections = []string{
	"Intent of the Change:",
	"Affected Code or Packages:",
	"Insertion Points:",
	"New Code:",
	"Invocation of new programming unit in existing source:",
	"Explanation:",
	"Required Import:",
}

// missingSections returns the required headers absent from result.
func missingSections(result string) []string {
	var missing []string
	for _, section := range requiredSections {
		if !strings.Contains(result, section) {
			missing = append(missing, section)
		}
	}
	return missing
}

// ensureSections checks the result for the required headers. A conformant
// result passes through unchanged; otherwise it is prefixed with an error
// banner naming the missing sections, keeping the original text intact.
func ensureSections(result string) (string, bool) {
	missing := missingSections(result)
	if len(missing) == 0 {
		return result, true
	}
	return fmt.Sprintf(
		"/* Error: The following sections are missing from the generated result: %s. Please retry. */\n\n%s",
		strings.Join(missing, ", "), result,
	), false
}
