package report

import (
	"testing"

	"github.com/mouaalim/mouaalim-backend/internal/textutil"
)

func TestChartLabelsDrawableByReportFont(t *testing.T) {
	for _, label := range []string{chartCorrectLabel, chartIncorrectLabel} {
		if got := textutil.StripUnsupported(label); got != label {
			t.Fatalf("chart label %q falls outside the report font coverage (kept %q)", label, got)
		}
	}
}
