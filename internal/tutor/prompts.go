package tutor

import (
	"fmt"
	"strings"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
)

// Prompt builders for the generation model. All tutoring output is Tunisian
// Arabic aimed at a fourth-grade child, so the instructions themselves are
// written in Arabic.

// SummaryPrompt asks for a slide-deck chapter summary as a single JSON
// object.
func SummaryPrompt(topic, branch string, lessons []domain.Lesson, ctx Context) string {
	var sub strings.Builder
	for _, l := range lessons {
		fmt.Fprintf(&sub, "• %s\n", l.Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "إنتي معلّم/ة تونسي/ة؛ هدفك تبسّط محور “%s” من فرع “%s” لتلميذ في\n", topic, branch)
	b.WriteString("السنة الرابعة ابتـدائي. ركّز على الفهم، ربط الأفكار بحياتو اليومية، وتنويع الأمثلة.\n\n")
	b.WriteString("المعطيات قدامك:\n")
	b.WriteString("┌─ الدروس الفرعيّة:\n")
	b.WriteString(sub.String())
	b.WriteString("\n┌─ مقتطفات من الكتاب (تستعملها كان تحب تقتبس جملة ولا توضيح):\n")
	b.WriteString(ctx.Text)
	b.WriteString("\n\n┌─ مجموعة تصاور مرتبطة (اختياري تستعمل بعضها):\n")
	b.WriteString(ctx.ImagesMarkdown)
	b.WriteString("\n\nطريقة العمل المطلوبة:\n")
	b.WriteString("1) إفتتاحيّة صغيرة بالدارجة (سطرين ـ ٣ سطور) تعرّف فيها بالمحور ولماذا يهمّ التلميذ.\n")
	b.WriteString("2) بعد الإفتتاحيّة، امشِ درس درس:\n")
	b.WriteString("   • اشرح الفكرة الرئيسية بعبارة مبسّطة.\n")
	b.WriteString("   • أعط مثال واقعي من حياة الطفل.\n")
	b.WriteString("   • إذا لزم الأمر وتوجد صورة، أدرجها هكذا: ![alt](file-name.jpeg) (حد أقصى ٣ صور).\n")
	b.WriteString("3) أختم بسطر يُلخّص «رسالة/عبرة» المحور.\n\n")
	b.WriteString("أخرج JSON فقط بالهيكل:\n")
	fmt.Fprintf(&b, "{\n  \"title\": \"درس عن %s\",\n", topic)
	b.WriteString("  \"slides\": [\n")
	b.WriteString("    { \"number\": \"1\", \"text\": \"...\" },\n")
	b.WriteString("    { \"number\": \"2\", \"text\": \"...\" }\n")
	b.WriteString("  ]\n}\n")
	return b.String()
}

// AnswerPrompt builds the question-answering prompt. When the topic was
// resolved it carries the inferred lesson, the topic's lesson list, and the
// retrieved context; otherwise the model answers from general knowledge.
func AnswerPrompt(question string, res Resolution, resolved bool, lessons []domain.Lesson, ctx Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "أنت معلّم صبور. السؤال: «%s»\n", question)
	if resolved {
		fmt.Fprintf(&b, "الدرس الأنسب: “%s” تحت محور “%s”.\n", res.Lesson, res.Topic)
		b.WriteString("الدروس:\n")
		for _, l := range lessons {
			fmt.Fprintf(&b, "• %s\n", l.Title)
		}
		b.WriteString("\nمقتطفات من الكتاب:\n")
		b.WriteString(ctx.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("اشرح ببساطة مع مثال من الحياة اليومية.")
	return b.String()
}

// QuizPrompt asks for a JSON quiz covering every lesson of the topic.
func QuizPrompt(topic, branch string, lessons []domain.Lesson, ctx Context, numMC, numTF int) string {
	var sub strings.Builder
	for _, l := range lessons {
		fmt.Fprintf(&sub, "• %s (pages %d–%d)\n", l.Title, l.StartPage, l.EndPage)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "أنت صانع امتحانات لابتدائي. أعد JSON فيه %d MC و%d صح/خطأ ", numMC, numTF)
	fmt.Fprintf(&b, "عن محور «%s» (فرع «%s»). غطّ كل الدروس:\n%s\n", topic, branch, sub.String())
	fmt.Fprintf(&b, "مقتطفات:\n%s\n\n", ctx.Text)
	b.WriteString("Return JSON: { \"questions\": [ ")
	b.WriteString("{\"type\":\"mc\",\"q\":\"...\",\"options\":[\"...\",\"...\",\"...\",\"...\"],\"a\":\"...\"}, ")
	b.WriteString("{\"type\":\"tf\",\"q\":\"...\",\"a\":\"صح\"} ] }")
	return b.String()
}

// FeedbackPrompt assembles the end-of-session report prompt from whatever
// the session actually recorded; sections without data are left out.
func FeedbackPrompt(s *Session) string {
	var parts []string

	if s.ChapterSummary != "" {
		parts = append(parts, "ملخّص الدرس:\n"+s.ChapterSummary+"\n")
	}
	if len(s.QAHistory) > 0 {
		var qa strings.Builder
		for _, ex := range s.QAHistory {
			fmt.Fprintf(&qa, "❓ %s\n📥 %s\n\n", ex.Question, ex.Answer)
		}
		parts = append(parts, "الأسئلة و الأجوبة:\n"+qa.String())
	}
	if s.HasQuizOutcome() {
		total := s.QuizResults.Correct + s.QuizResults.Incorrect
		pct := float64(s.QuizResults.Correct) / float64(total) * 100
		parts = append(parts, fmt.Sprintf(
			"تفاصيل الاختبار:\nنتيجة الاختبار: ✅ %d  ❌ %d  (النسبة: %.0f%%)\n",
			s.QuizResults.Correct, s.QuizResults.Incorrect, pct))
		verdict := "لم يمر بعد"
		if s.SessionPassed {
			verdict = "ناجح"
		}
		parts = append(parts, fmt.Sprintf(
			"ملخص الاختبار:\n- عدد الأسئلة: %d\n- صحيحة: %d\n- خاطئة: %d\n- تقييم على 10: %.2f\n- النتيجة النهائية: %s\n",
			total, s.QuizResults.Correct, s.QuizResults.Incorrect, s.QuizRating, verdict))
	}

	sessionPassed := "false"
	if s.SessionPassed {
		sessionPassed = "true"
	}

	var b strings.Builder
	b.WriteString("أنت أخصّائي متابعة تعلّم للأطفال. ")
	b.WriteString("استعمل المعلومات الآتية عن الجلسة، ثم أرجِع **كائناً JSON واحداً صالحاً** فقط:\n\n")
	b.WriteString(strings.Join(parts, "\n---\n"))
	b.WriteString("\n\n")
	b.WriteString("{\n")
	b.WriteString("  \"branch\":        \"المجال أو المادة\",\n")
	b.WriteString("  \"topic\":         \"الموضوع العام\",\n")
	b.WriteString("  \"lesson\":        \"عنوان الدرس (إن وجد)\",\n")
	b.WriteString("  \"summary\":       \"ملخص قصير للجلسة\",\n")
	b.WriteString("  \"steps\":         [\"خطوة 1\", \"خطوة 2\", \"...\"],\n")
	fmt.Fprintf(&b, "  \"quiz_rating\":   %.2f,\n", s.QuizRating)
	fmt.Fprintf(&b, "  \"session_passed\": %s,\n", sessionPassed)
	b.WriteString("  \"feedback\":      \" **رسالة موجهة للمعلّم/ة**: تحليل نقاط القوة، الصعوبات، ونصائح عملية لتحسين التعلّم\",\n")
	b.WriteString("  \"encouragement\": \"رسالة باللهجة التونسية تشجّع الطفل\"\n")
	b.WriteString("}\n\n")
	b.WriteString("انتبه:\n")
	b.WriteString("- في \"feedback\" اشرح لماذا أخطأ التلميذ، وكيف يتجاوز الصعوبات.\n")
	b.WriteString("- لا تطبع أي شيء خارج قوسَي JSON.")
	return b.String()
}
