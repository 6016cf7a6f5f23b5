package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mouaalim/mouaalim-backend/internal/clients/gemini"
	"github.com/mouaalim/mouaalim-backend/internal/config"
	"github.com/mouaalim/mouaalim-backend/internal/data/graph"
	"github.com/mouaalim/mouaalim-backend/internal/embedding"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/platform/neo4jdb"
	"github.com/mouaalim/mouaalim-backend/internal/platform/qdrant"
	"github.com/mouaalim/mouaalim-backend/internal/report"
	"github.com/mouaalim/mouaalim-backend/internal/retrieval"
	"github.com/mouaalim/mouaalim-backend/internal/services"
	"github.com/mouaalim/mouaalim-backend/internal/textutil"
	"github.com/mouaalim/mouaalim-backend/internal/tutor"
)

var summaryPattern = regexp.MustCompile(`ملخص\s+(?:محور\s+)?([\x{0600}-\x{06FF} ]+)`)

const topicRetryLimit = 3

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "production"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	ctx := context.Background()

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Fatal("Neo4j init failed", "error", err)
	}
	defer neo.Close(context.Background())
	curriculum := graph.NewCurriculum(neo, log)

	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		log.Fatal("Qdrant config invalid", "error", err)
	}
	store, err := qdrant.NewStore(log, qcfg)
	if err != nil {
		log.Fatal("Qdrant init failed", "error", err)
	}

	embedder, err := embedding.NewFromConfig(cfg.Embedding, log)
	if err != nil {
		log.Fatal("Embedder init failed", "error", err)
	}
	generator, err := gemini.NewClient(cfg.Generation, log)
	if err != nil {
		log.Fatal("Gemini client init failed", "error", err)
	}

	retriever := retrieval.NewRetriever(
		embedder,
		store,
		cfg.Retrieval.FetchK,
		cfg.Retrieval.RerankK,
		time.Duration(cfg.Retrieval.TimeoutSeconds)*time.Second,
		log,
	)

	assembler := tutor.NewContextAssembler(curriculum, retriever)
	sessions := tutor.NewSessionStore()
	renderer := report.NewRenderer(cfg.Report, log)
	svc := services.NewTutorService(cfg, curriculum, assembler, embedder, generator, sessions, renderer, nil, log)

	// One long-lived session per CLI run.
	session := sessions.GetOrCreate(uuid.NewSHA1(uuid.NameSpaceOID, []byte("tutor-cli")))

	cli := &repl{
		svc:       svc,
		session:   session,
		generator: generator,
		topics:    curriculum,
		in:        bufio.NewScanner(os.Stdin),
		imageDir:  cfg.Report.ImageDir,
	}
	cli.run(ctx)
}

type topicSource interface {
	AllTopics(ctx context.Context) ([]string, error)
}

type repl struct {
	svc       *services.TutorService
	session   *tutor.Session
	generator gemini.Generator
	topics    topicSource
	in        *bufio.Scanner
	imageDir  string
}

func (r *repl) run(ctx context.Context) {
	fmt.Println(" مرحبا! اكتب 'ملخص …', 'سؤال: …', 'اختبرني', أو 'انهينا'.")
	for {
		line, ok := r.readLine("👦 » ")
		if !ok {
			return
		}
		if line == "" {
			continue
		}

		switch r.classify(ctx, line) {
		case "summary":
			r.handleSummary(ctx, line)
		case "quiz":
			r.handleQuiz(ctx)
		case "end":
			r.handleEnd(ctx)
			return
		default:
			r.handleQuestion(ctx, line)
		}
	}
}

func (r *repl) readLine(prompt string) (string, bool) {
	fmt.Print(prompt)
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

// classify routes the child's request. Cheap keyword rules cover the common
// phrasings; anything ambiguous goes to the model.
func (r *repl) classify(ctx context.Context, line string) string {
	switch {
	case strings.HasPrefix(line, "ملخص"):
		return "summary"
	case strings.Contains(line, "اختبرني"):
		return "quiz"
	case strings.Contains(line, "انهينا"):
		return "end"
	case strings.HasPrefix(line, "سؤال"), strings.HasPrefix(line, "qa:"):
		return "qa"
	}

	prompt := fmt.Sprintf("👂 إفهم طلب الطفل: «%s». أرجع كلمة واحدة: summary | qa | quiz | end", line)
	out, err := r.generator.GenerateText(ctx, prompt)
	if err != nil {
		return "qa"
	}
	decision := strings.ToLower(strings.TrimSpace(out))
	switch decision {
	case "summary", "qa", "quiz", "end":
		return decision
	}
	return "qa"
}

func (r *repl) handleSummary(ctx context.Context, line string) {
	m := summaryPattern.FindStringSubmatch(line)
	if m == nil {
		fmt.Println("⚠️  لازم تذكر اسم المحور بعد كلمة «ملخص».")
		return
	}
	topic := strings.TrimSpace(m[1])

	res, err := r.svc.Summary(ctx, r.session, topic)
	if err != nil {
		fmt.Printf(" ما لقيتش المحور «%s» في قاعدة المعرفة: %v\n", topic, err)
		return
	}
	if res.Deck.Title != "" {
		fmt.Println(res.Deck.Title)
	}
	for _, slide := range res.Deck.Slides {
		r.echoMarkdown(slide.Text)
	}
}

func (r *repl) handleQuestion(ctx context.Context, line string) {
	res, ok, err := r.svc.ResolveQuestion(ctx, line)
	if err != nil {
		fmt.Printf("⚠️  تعذّر فهم السؤال: %v\n", err)
		return
	}

	var out services.AnswerResult
	if ok {
		out, err = r.svc.AnswerForTopic(ctx, r.session, line, res.Topic, res.Lesson)
	} else {
		fmt.Println("ما فهمتش المحور. على أي محور تسأل؟")
		topic, chosen := r.askTopic(ctx)
		if !chosen {
			fmt.Println("حسنًا، نرجع للقائمة الرئيسية.")
			return
		}
		out, err = r.svc.AnswerForTopic(ctx, r.session, line, topic, topic)
	}
	if err != nil {
		fmt.Printf("⚠️  تعذّر توليد الجواب: %v\n", err)
		return
	}
	r.echoMarkdown(out.Answer)
}

func (r *repl) handleQuiz(ctx context.Context) {
	fmt.Println("🔢 على أي محور تحب أن تختبر نفسك؟")
	topic, chosen := r.askTopic(ctx)
	if !chosen {
		fmt.Println("حسنًا، عدنا إلى القائمة الرئيسية.")
		return
	}

	if _, err := r.svc.StartQuiz(ctx, r.session, topic, 0, 0); err != nil {
		fmt.Printf("❗ خطأ في توليد الاختبار: %v\n", err)
		return
	}

	index := 1
	for r.session.PendingQuiz != nil {
		grader := r.session.PendingQuiz
		q, ok := grader.Current()
		if !ok {
			break
		}
		fmt.Printf("\n%d - %s\n", index, q.Q)
		if q.Type == "mc" {
			fmt.Println("   الخيارات:", strings.Join(q.Options, ", "))
		} else {
			fmt.Println("   الخيارات: صحيح / خطأ")
		}

		answer, alive := r.readLine("   ➜ إجابتك: ")
		if !alive {
			return
		}
		outcome, err := r.svc.SubmitAnswer(ctx, r.session, answer)
		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
			return
		}
		if !outcome.Accepted {
			fmt.Println(" اختَر من الخيارات المعروضة فقط.")
			continue
		}
		if outcome.IsCorrect {
			fmt.Println("✔")
		} else {
			fmt.Printf("✘ الإجابة الصحيحة: %s\n", outcome.Correct)
		}
		index++
		if outcome.Done {
			break
		}
	}

	results := r.session.QuizResults
	fmt.Printf("\n🔢 نتيجتك: ✅ %d  ❌ %d\n", results.Correct, results.Incorrect)
	fmt.Println(r.session.FeedbackNote)
}

func (r *repl) handleEnd(ctx context.Context) {
	res, err := r.svc.Finish(ctx, r.session)
	if err != nil {
		fmt.Printf("⚠️  تعذّر توليد التقرير: %v\n", err)
		return
	}
	if res.Report.Feedback != "" {
		fmt.Println(res.Report.Feedback)
	}
	if res.Report.Encouragement != "" {
		fmt.Println(res.Report.Encouragement)
	}
	fmt.Println("📄 التقرير:", res.ReportPath)
}

// askTopic prints the numbered topic list and reads a selection by index or
// exact name. Bounded retries, "خروج" cancels.
func (r *repl) askTopic(ctx context.Context) (string, bool) {
	topics, err := r.topics.AllTopics(ctx)
	if err != nil || len(topics) == 0 {
		fmt.Println("⚠️  تعذّر جلب قائمة المحاور.")
		return "", false
	}

	for attempt := 0; attempt < topicRetryLimit; attempt++ {
		fmt.Println("\n📚 المحاور المتوفرة:")
		for i, name := range topics {
			fmt.Printf("  %d) %s\n", i+1, name)
		}
		selection, ok := r.readLine("\n🔢 اكتب رقم المحور أو اسمه بالضبط (أو 'خروج' للإلغاء): ")
		if !ok {
			return "", false
		}
		if strings.EqualFold(selection, "خروج") {
			return "", false
		}
		if idx, err := strconv.Atoi(selection); err == nil {
			if idx >= 1 && idx <= len(topics) {
				return topics[idx-1], true
			}
			fmt.Println("⚠️  رقم غير صحيح. حاول مرة أخرى.")
			continue
		}
		for _, name := range topics {
			if name == selection {
				return name, true
			}
		}
		fmt.Println("⚠️  ما لقيتش هذا المحور. اختر مرة أخرى.")
	}
	return "", false
}

// echoMarkdown prints text line by line, turning markdown image references
// into captions and warning when the file is missing on disk.
func (r *repl) echoMarkdown(text string) {
	for _, line := range strings.Split(text, "\n") {
		m := textutil.MDImage.FindStringSubmatch(line)
		if m == nil {
			fmt.Println(line)
			continue
		}
		loc := textutil.MDImage.FindStringIndex(line)
		prefix := strings.TrimRight(line[:loc[0]], " ")
		caption := strings.TrimSpace(m[1])
		fileName := strings.TrimSpace(m[2])
		if prefix != "" {
			fmt.Println(prefix + " " + caption)
		} else {
			fmt.Println("• " + caption)
		}
		if _, err := os.Stat(filepath.Join(r.imageDir, fileName)); err != nil {
			fmt.Println("⚠️  الصورة غير موجودة:", fileName)
		}
	}
}
