package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lernblick/lernblick/internal/common"
)

// AllFailedError aggregates every provider's failure when no result could
// be produced.
type AllFailedError struct {
	Reasons map[string]error // provider name -> failure
}

func (e *AllFailedError) Error() string {
	names := make([]string, 0, len(e.Reasons))
	for name := range e.Reasons {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Reasons[name]))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match on the sentinel without caring about the
// per-provider reasons.
func (e *AllFailedError) Unwrap() error {
	return common.ErrAllFailed
}
