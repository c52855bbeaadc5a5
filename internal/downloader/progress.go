package downloader

import (
	"strconv"
	"strings"

	"github.com/cesargomez89/musicdl/internal/constants"
)

// ParseFetchPercent extracts the percentage from a fetcher progress line such
// as "[download]  42.0% of 3.50MiB". Only the first token ending in "%" is
// considered.
func ParseFetchPercent(line string) (float64, bool) {
	if !strings.Contains(line, constants.YTDLPProgressMarker) {
		return 0, false
	}
	for _, field := range strings.Fields(line) {
		if !strings.HasSuffix(field, "%") {
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(field, "%"), 64)
		if err != nil {
			return 0, false
		}
		return pct, true
	}
	return 0, false
}
