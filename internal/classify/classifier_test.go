package classify

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/utils"
)

func newTestEngine() *Engine {
	return NewEngine(zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))
}

func TestClassifyConfirmation(t *testing.T) {
	e := newTestEngine()

	result := e.Classify(context.Background(),
		"Your application to Acme Corp",
		"We have received your application and will review your resume shortly.",
		"no-reply@greenhouse-mail.io")

	if result.Category != core.CategoryConfirmation {
		t.Fatalf("Category = %q, want %q", result.Category, core.CategoryConfirmation)
	}
	if result.Confidence < MinConfidence {
		t.Errorf("Confidence = %v, want >= %v", result.Confidence, MinConfidence)
	}
	if result.Company != "Acme Corp" {
		t.Errorf("Company = %q, want %q", result.Company, "Acme Corp")
	}
	if result.TimedOut {
		t.Error("TimedOut should be false for a small input")
	}
}

func TestClassifyJobListing(t *testing.T) {
	e := newTestEngine()

	result := e.Classify(context.Background(),
		`5 new jobs for "Software Engineer"`,
		"Apply now: https://www.linkedin.com/jobs/view/4021337\nSee more jobs in your area.",
		"jobalerts-noreply@linkedin.com")

	if result.Category != core.CategoryJobListing {
		t.Fatalf("Category = %q, want %q", result.Category, core.CategoryJobListing)
	}
	if result.JobTitle != "Software Engineer" {
		t.Errorf("JobTitle = %q, want %q", result.JobTitle, "Software Engineer")
	}
	if result.ApplicationURL != "https://www.linkedin.com/jobs/view/4021337" {
		t.Errorf("ApplicationURL = %q", result.ApplicationURL)
	}
}

func TestClassifyRecruiterOutreach(t *testing.T) {
	e := newTestEngine()

	result := e.Classify(context.Background(),
		"Quick question about your background",
		"Hi, I came across your profile and I'm reaching out. You would be a great fit for the Senior Go Developer role. Are you open to new opportunities?",
		"jane.doe@talent-partners.example.com")

	if result.Category != core.CategoryRecruiterReach {
		t.Fatalf("Category = %q, want %q", result.Category, core.CategoryRecruiterReach)
	}
	if result.JobTitle != "Senior Go Developer" {
		t.Errorf("JobTitle = %q, want %q", result.JobTitle, "Senior Go Developer")
	}
}

func TestClassifyUnrelatedEmail(t *testing.T) {
	e := newTestEngine()

	result := e.Classify(context.Background(),
		"Lunch on Friday?",
		"See you at noon at the usual place.",
		"friend@example.com")

	if result.Category != core.CategoryUnclassified {
		t.Fatalf("Category = %q, want %q", result.Category, core.CategoryUnclassified)
	}
	if result.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", result.Confidence)
	}
}

func TestClassifyBelowThresholdStaysUnclassified(t *testing.T) {
	e := newTestEngine()

	// A single weak body signal scores below the confidence floor.
	result := e.Classify(context.Background(),
		"Quarterly update",
		"Apply now to join our newsletter.",
		"someone@company.example")

	if result.Category != core.CategoryUnclassified {
		t.Fatalf("Category = %q, want %q", result.Category, core.CategoryUnclassified)
	}
	if result.Confidence >= MinConfidence {
		t.Errorf("Confidence = %v, want < %v", result.Confidence, MinConfidence)
	}
}

func TestMachineSenderSuppressesOutreachSignals(t *testing.T) {
	e := newTestEngine()

	// A job-board digest quoting first-person recruiter phrasing must not be
	// classified as recruiter outreach.
	result := e.Classify(context.Background(),
		"This week on your feed",
		"\"I came across your profile and I'm reaching out,\" writes a hiring manager in our featured post.",
		"notifications@linkedin.com")

	if result.Category == core.CategoryRecruiterReach {
		t.Errorf("Category = %q, machine senders must not score as outreach", result.Category)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	subject := "Your application to Globex"
	body := "Thank you for applying. We have received your application."
	sender := "recruiting@lever.co"

	first := e.Classify(ctx, subject, body, sender)
	for i := 0; i < 10; i++ {
		again := e.Classify(ctx, subject, body, sender)
		if again.Category != first.Category || again.Confidence != first.Confidence ||
			again.Company != first.Company || again.JobTitle != first.JobTitle ||
			again.ApplicationURL != first.ApplicationURL {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestClassifyLargeInputCompletes(t *testing.T) {
	e := newTestEngine()

	// Far above the truncation bound, stuffed with near-miss fragments.
	body := strings.Repeat("applicat received you appl ", 20_000)
	result := e.Classify(context.Background(), "subject", body, "x@example.com")

	if result == nil {
		t.Fatal("Classify returned nil")
	}
	if !core.ValidCategory(string(result.Category)) {
		t.Errorf("invalid category %q", result.Category)
	}
}

func TestClassifyCancelledContextReturnsPartial(t *testing.T) {
	e := newTestEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := strings.Repeat("we have received your application ", 300)
	result := e.Classify(ctx, "Your application was received", body, "no-reply@icims.com")

	if result == nil {
		t.Fatal("Classify returned nil")
	}
	if !result.TimedOut {
		t.Error("TimedOut should be set when the context is already cancelled")
	}
	if !core.ValidCategory(string(result.Category)) {
		t.Errorf("invalid category %q", result.Category)
	}
}

func TestScoreTieBreaksByPriority(t *testing.T) {
	// Subject matches both a confirmation signal and a listing signal with
	// equal weight; confirmation wins the tie.
	category, confidence := score(
		"Thank you for applying - new openings for you",
		"regards",
		"person@example.com")

	if category != core.CategoryConfirmation {
		t.Errorf("category = %q, want %q", category, core.CategoryConfirmation)
	}
	if confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", confidence)
	}
}

func TestScoreCapsAtOne(t *testing.T) {
	_, confidence := score(
		"Your application was received - thank you for applying",
		"We have received your application and will review your resume.",
		"no-reply@greenhouse.io")

	if confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", confidence)
	}
}

func TestExtractURLPrefersJobLinks(t *testing.T) {
	body := "Read the story at https://news.example.com/tech-hiring-trends then apply at https://boards.greenhouse.io/acme/jobs/4123."
	got := extractURL(body)
	want := "https://boards.greenhouse.io/acme/jobs/4123"
	if got != want {
		t.Errorf("extractURL = %q, want %q", got, want)
	}
}

func TestExtractURLFallsBackToFirstLink(t *testing.T) {
	body := "Details: https://example.com/announcement and https://example.com/other-page"
	got := extractURL(body)
	if got != "https://example.com/announcement" {
		t.Errorf("extractURL = %q", got)
	}
}

func TestExtractURLEmptyBody(t *testing.T) {
	if got := extractURL("no links here"); got != "" {
		t.Errorf("extractURL = %q, want empty", got)
	}
}

func TestExtractCompany(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    string
	}{
		{"applied in subject", "Your application to Initech", "", "Initech"},
		{"at in subject", "Opportunity at Hooli Inc", "", "Hooli Inc"},
		{"hiring in body", "", "Vandelay Industries is hiring engineers", "Vandelay Industries"},
		{"labeled in body", "", "Company: Wayne Enterprises\nLocation: Gotham", "Wayne Enterprises"},
		{"nothing", "hello", "just text", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractCompany(tt.subject, tt.body); got != tt.want {
				t.Errorf("extractCompany = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    string
	}{
		{"jobs for in subject", `New jobs for "Backend Engineer"`, "", "Backend Engineer"},
		{"leading title in subject", "Staff Engineer at Initech", "", "Staff Engineer"},
		{"for the role in body", "", "You applied for the Platform Engineer role last week.", "Platform Engineer"},
		{"nothing", "hello", "just text", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.subject, tt.body); got != tt.want {
				t.Errorf("extractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMakeExcerpt(t *testing.T) {
	got := makeExcerpt("  line one\n\n   line two\t\tend  ")
	if got != "line one line two end" {
		t.Errorf("makeExcerpt = %q", got)
	}

	long := strings.Repeat("a", 500)
	if got := makeExcerpt(long); len(got) != 200 {
		t.Errorf("excerpt length = %d, want 200", len(got))
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"Acme Corp"`, "Acme Corp"},
		{"Initech.", "Initech"},
		{"  Hooli ;", "Hooli"},
		{"Globex", "Globex"},
	}
	for _, tt := range tests {
		if got := cleanName(tt.in); got != tt.want {
			t.Errorf("cleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
