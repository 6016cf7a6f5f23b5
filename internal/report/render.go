package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	xdraw "golang.org/x/image/draw"

	"github.com/mouaalim/mouaalim-backend/internal/config"
	"github.com/mouaalim/mouaalim-backend/internal/domain"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/textutil"
	"github.com/mouaalim/mouaalim-backend/internal/tutor"
)

const (
	marginTop    = 40.0
	marginBottom = 40.0
	leading      = 18.0
	wrapWidth    = 80
)

// Renderer writes the end-of-session PDF report. Text is laid out
// right-aligned line by line; markdown image references in the summary are
// resolved against the textbook image directory.
type Renderer struct {
	cfg config.Report
	log *logger.Logger
}

func NewRenderer(cfg config.Report, log *logger.Logger) *Renderer {
	return &Renderer{cfg: cfg, log: log.With("service", "ReportRenderer")}
}

// Render writes the session report PDF and returns its path.
func (r *Renderer) Render(s *tutor.Session, filename string) (string, error) {
	if err := os.MkdirAll(r.cfg.ReportsDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	outPath := filepath.Join(r.cfg.ReportsDir, filename)

	pdf := fpdf.New("P", "pt", "A4", "")
	font := r.cfg.FontName
	if r.cfg.FontPath != "" {
		pdf.AddUTF8Font(font, "", r.cfg.FontPath)
	} else {
		// No Arabic font bundled; a built-in face keeps the report
		// coming out even if the glyphs suffer.
		font = "Helvetica"
		r.log.Warn("report font not configured, falling back to built-in face")
	}
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	cur := &cursor{pdf: pdf, pageW: pageW, pageH: pageH, y: marginTop, font: font}

	cur.text("📗 تقرير التعلّم", 20)
	cur.y += leading

	if s.ChapterSummary != "" {
		r.richBlock(cur, "ملخّص الدرس:", s.ChapterSummary)
	}
	if len(s.QAHistory) > 0 {
		var lines []string
		for _, ex := range s.QAHistory {
			lines = append(lines, fmt.Sprintf("❓ %s\n📥 %s\n", ex.Question, ex.Answer))
		}
		r.richBlock(cur, "الأسئلة و الأجوبة:", strings.Join(lines, "\n"))
	}
	if len(s.QuizLog) > 0 {
		var lines []string
		for i, qd := range s.QuizLog {
			mark := "✘"
			if qd.IsCorrect {
				mark = "✔"
			}
			lines = append(lines, fmt.Sprintf("%d) %s", i+1, qd.Q))
			if qd.Type == domain.QuestionTypeMC {
				lines = append(lines, "   "+strings.Join(qd.Options, "، "))
			}
			lines = append(lines, fmt.Sprintf("   إجابتك: %s   الصحيح: %s   %s\n", qd.Child, qd.Correct, mark))
		}
		r.richBlock(cur, "تفاصيل الاختبار:", strings.Join(lines, "\n"))
	}

	var score strings.Builder
	if s.HasQuizOutcome() {
		total := s.QuizResults.Correct + s.QuizResults.Incorrect
		pct := 100 * float64(s.QuizResults.Correct) / float64(total)
		fmt.Fprintf(&score, "✅ %d   ❌ %d   النتيجة: %.0f%%\n", s.QuizResults.Correct, s.QuizResults.Incorrect, pct)
	}
	if s.FeedbackNote != "" {
		score.WriteString(s.FeedbackNote)
	}
	if score.Len() > 0 {
		r.richBlock(cur, "التقييم النهائي:", score.String())
	}
	if s.HasQuizOutcome() {
		r.drawScoreChart(cur, s.QuizResults)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("write report pdf: %w", err)
	}
	r.log.Info("session report written", "path", outPath)
	return outPath, nil
}

// richBlock renders a titled block whose body may mix text lines and
// markdown image references.
func (r *Renderer) richBlock(cur *cursor, title, rawMD string) {
	cur.text(title, 15)
	cur.pdf.SetDrawColor(153, 153, 153)
	cur.pdf.Line(marginBottom, cur.y-leading+6, cur.pageW-marginBottom, cur.y-leading+6)
	cur.y += leading / 2

	for _, paragraph := range strings.Split(rawMD, "\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			cur.y += leading / 2
			continue
		}

		idx := 0
		for _, loc := range textutil.MDImage.FindAllStringSubmatchIndex(paragraph, -1) {
			pre := strings.TrimRight(paragraph[idx:loc[0]], " ")
			if pre != "" {
				for _, line := range textutil.WrapLine(pre, wrapWidth) {
					cur.text(line, 13)
				}
			}
			alt := strings.TrimSpace(paragraph[loc[2]:loc[3]])
			path := strings.TrimSpace(paragraph[loc[4]:loc[5]])
			r.drawImage(cur, path, alt)
			idx = loc[1]
		}
		tail := strings.TrimRight(paragraph[idx:], " ")
		if tail != "" {
			for _, line := range textutil.WrapLine(tail, wrapWidth) {
				cur.text(line, 13)
			}
		}
	}
	cur.y += leading / 2
}

// drawImage places one textbook picture right-aligned, scaled to fit the
// configured box. A missing file degrades to its caption.
func (r *Renderer) drawImage(cur *cursor, name, alt string) {
	fullPath := filepath.Join(r.cfg.ImageDir, strings.ReplaceAll(name, " ", ""))

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		cur.text(fmt.Sprintf("[صورة غير موجودة] %s", alt), 13)
		return
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		cur.text(fmt.Sprintf("[صورة غير موجودة] %s", alt), 13)
		return
	}

	bounds := img.Bounds()
	iw, ih := float64(bounds.Dx()), float64(bounds.Dy())
	scale := minFloat(float64(r.cfg.MaxImageW)/iw, float64(r.cfg.MaxImageH)/ih, 1.0)
	dw, dh := iw*scale, ih*scale

	data := raw
	imageType := strings.ToUpper(format)
	if scale < 1.0 {
		if resized, err := downscalePNG(img, int(dw), int(dh)); err == nil {
			data = resized
			imageType = "PNG"
		}
	}

	if cur.y+dh+leading > cur.pageH-marginBottom {
		cur.newPage()
	}

	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
	imageName := fmt.Sprintf("img-%s-%d", name, cur.images)
	cur.images++
	cur.pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(data))
	cur.pdf.ImageOptions(imageName, cur.pageW-marginBottom-dw, cur.y, dw, dh, false, opts, 0, "")
	cur.y += dh + leading/2

	cur.text(alt, 11)
}

func (r *Renderer) drawScoreChart(cur *cursor, results domain.QuizResults) {
	data, err := scoreChart(results, r.cfg.FontPath)
	if err != nil {
		r.log.Warn("score chart skipped", "error", err)
		return
	}
	const dw, dh = 210.0, 110.0
	if cur.y+dh+leading > cur.pageH-marginBottom {
		cur.newPage()
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	cur.pdf.RegisterImageOptionsReader("score-chart", opts, bytes.NewReader(data))
	cur.pdf.ImageOptions("score-chart", cur.pageW-marginBottom-dw, cur.y, dw, dh, false, opts, 0, "")
	cur.y += dh + leading/2
}

// cursor tracks the vertical write position over pages.
type cursor struct {
	pdf    *fpdf.Fpdf
	pageW  float64
	pageH  float64
	y      float64
	font   string
	images int
}

func (c *cursor) newPage() {
	c.pdf.AddPage()
	c.y = marginTop
}

// text writes one right-aligned line and advances the cursor.
func (c *cursor) text(line string, size float64) {
	if c.y+leading > c.pageH-marginBottom {
		c.newPage()
	}
	c.pdf.SetFont(c.font, "", size)
	display := rtl(textutil.StripUnsupported(line))
	x := c.pageW - marginBottom - c.pdf.GetStringWidth(display)
	c.pdf.Text(x, c.y, display)
	c.y += leading
}

func downscalePNG(img image.Image, w, h int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minFloat(vals ...float64) float64 {
	out := vals[0]
	for _, v := range vals[1:] {
		if v < out {
			out = v
		}
	}
	return out
}
