package report

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
)

const (
	chartWidth  = 420
	chartHeight = 220

	// Bar labels stay inside the glyph coverage of the Naskh report font.
	chartCorrectLabel   = "صح"
	chartIncorrectLabel = "خطأ"
)

// scoreChart draws a two-bar quiz score chart and returns it PNG-encoded.
func scoreChart(results domain.QuizResults, fontPath string) ([]byte, error) {
	total := results.Correct + results.Incorrect
	if total == 0 {
		return nil, fmt.Errorf("no graded questions to chart")
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	face, err := chartFontFace(fontPath, 16)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)

	const (
		baseY    = chartHeight - 40.0
		maxBarH  = chartHeight - 90.0
		barWidth = 90.0
	)
	bars := []struct {
		label string
		count int
		r     float64
		g     float64
		b     float64
	}{
		{chartCorrectLabel, results.Correct, 0.22, 0.66, 0.32},
		{chartIncorrectLabel, results.Incorrect, 0.82, 0.26, 0.24},
	}

	for i, bar := range bars {
		h := maxBarH * float64(bar.count) / float64(total)
		x := 80.0 + float64(i)*180.0
		dc.SetRGB(bar.r, bar.g, bar.b)
		dc.DrawRectangle(x, baseY-h, barWidth, h)
		dc.Fill()

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(rtl(fmt.Sprintf("%s %d", bar.label, bar.count)), x+barWidth/2, baseY+18, 0.5, 0.5)
	}

	pct := 100 * float64(results.Correct) / float64(total)
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(fmt.Sprintf("%.0f%%", pct), chartWidth/2, 24, 0.5, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func chartFontFace(fontPath string, size float64) (font.Face, error) {
	raw, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read chart font: %w", err)
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse chart font: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: size}), nil
}
