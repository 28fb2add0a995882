// Package classify scores inbound emails against the weighted rule table and
// extracts structured job fields. All matching is bounded and timeout-guarded
// because the input is attacker-controlled.
package classify

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/metrics"
	"github.com/vcaboara/job-lead-finder-sub000/internal/utils"
)

const (
	// Defensive truncation: matching cost is bounded by these regardless of
	// how large a message the webhook delivers.
	maxClassifyChars = 10_000
	maxURLChars      = 5_000
	maxCompanyChars  = 2_000

	// MinConfidence is the threshold below which an email stays unclassified.
	MinConfidence = 0.5

	// matchTimeout caps how long the matching worker may run for one email.
	matchTimeout = 2 * time.Second
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"'\)\]]{8,1000}`)
	jobishURL  = regexp.MustCompile(`(?i)(?:jobs?|careers?|apply|greenhouse|lever\.co|ashbyhq|workday|smartrecruiters|linkedin\.com/(?:comm/)?jobs|indeed\.com)`)

	companySubject = regexp.MustCompile(`(?:at|with)\s{1,4}([A-Z][A-Za-z0-9&.\-]{0,39}(?:\s[A-Z][A-Za-z0-9&.\-]{0,39}){0,3})`)
	companyApplied = regexp.MustCompile(`(?:application\s{1,4}(?:to|at|with)|applying\s{1,4}(?:to|at|with)|position\s{1,4}at)\s{1,4}([A-Z][A-Za-z0-9&.\-]{0,39}(?:\s[A-Z][A-Za-z0-9&.\-]{0,39}){0,3})`)
	companyHiring  = regexp.MustCompile(`([A-Z][A-Za-z0-9&.\-]{0,39}(?:\s[A-Z][A-Za-z0-9&.\-]{0,39}){0,3})\s{1,4}is\s{1,4}hiring`)
	companyLabeled = regexp.MustCompile(`(?im)^company\s{0,4}:\s{0,4}([A-Za-z0-9&.\-' ]{2,50})`)

	titleJobsFor  = regexp.MustCompile(`(?i)jobs?\s{1,4}for\s{1,4}["“]?([A-Za-z][A-Za-z0-9/+#.\- ]{2,60})`)
	titleLeading  = regexp.MustCompile(`^["“]?([A-Z][A-Za-z0-9/+#.\- ]{2,60}?)["”]?\s{1,4}(?:at|@)\s`)
	titlePosition = regexp.MustCompile(`(?i)(?:position|role|opening)\s{0,4}(?:of|:)?\s{0,4}["“]?([A-Z][A-Za-z0-9/+#.\- ]{2,60})`)
	titleForThe   = regexp.MustCompile(`(?i)for\s{1,4}the\s{1,4}["“]?([A-Za-z][A-Za-z0-9/+#.\- ]{2,60}?)["”]?\s{1,4}(?:position|role|opening)`)

	whitespaceRun = regexp.MustCompile(`\s{2,}`)
)

// Engine is the rule-table classifier implementing core.Classifier
type Engine struct {
	logger  *zap.Logger
	text    *utils.TextProcessor
	timeout time.Duration
}

// NewEngine creates a new classification engine
func NewEngine(logger *zap.Logger, text *utils.TextProcessor) *Engine {
	return &Engine{
		logger:  logger,
		text:    text,
		timeout: matchTimeout,
	}
}

// Classify scores the email against the rule table and extracts job fields.
// The matching work runs on a separate goroutine; the timeout is enforced on
// the caller's side, so a pathological input abandons the worker rather than
// blocking the pipeline. A timeout yields whatever was extracted so far.
func (e *Engine) Classify(ctx context.Context, subject, body, sender string) *core.ClassificationResult {
	start := time.Now()

	subject = e.text.ProcessText(subject, core.MaxSubjectLength)
	classifyBody := e.text.ProcessText(body, maxClassifyChars)
	urlBody := e.text.ProcessText(body, maxURLChars)
	nameBody := e.text.ProcessText(body, maxCompanyChars)

	var (
		mu      sync.Mutex
		partial = core.ClassificationResult{Category: core.CategoryUnclassified}
	)
	set := func(fn func(r *core.ClassificationResult)) {
		mu.Lock()
		fn(&partial)
		mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		category, confidence := score(subject, classifyBody, sender)
		set(func(r *core.ClassificationResult) {
			r.Category = category
			r.Confidence = confidence
		})

		if url := extractURL(urlBody); url != "" {
			set(func(r *core.ClassificationResult) { r.ApplicationURL = url })
		}
		if company := extractCompany(subject, nameBody); company != "" {
			set(func(r *core.ClassificationResult) { r.Company = company })
		}
		if title := extractTitle(subject, nameBody); title != "" {
			set(func(r *core.ClassificationResult) { r.JobTitle = title })
		}
		if excerpt := makeExcerpt(classifyBody); excerpt != "" {
			set(func(r *core.ClassificationResult) { r.Excerpt = excerpt })
		}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	// An already-cancelled context never waits on the worker. Without this
	// check the select below could race a fast worker against ctx.Done().
	timedOut := ctx.Err() != nil
	if !timedOut {
		select {
		case <-done:
		case <-timer.C:
			timedOut = true
			e.logger.Warn("Pattern matching exceeded deadline, returning partial result",
				zap.Duration("timeout", e.timeout))
		case <-ctx.Done():
			timedOut = true
		}
	}

	mu.Lock()
	result := partial
	mu.Unlock()
	result.TimedOut = timedOut

	metrics.ObserveClassifyDuration(string(result.Category), time.Since(start))
	return &result
}

// score evaluates the rule table and returns the winning category with its
// confidence. Below MinConfidence the email stays unclassified. Ties are
// broken by rulePriority order, which the iteration makes explicit.
func score(subject, body, sender string) (core.EmailCategory, float64) {
	senderIsMachine := automatedSenders.MatchString(sender)

	totals := make(map[core.EmailCategory]float64, 3)
	for _, r := range ruleTable {
		// First-person outreach phrasing from an automated sender is a
		// digest quoting a recruiter, not outreach.
		if r.category == core.CategoryRecruiterReach && senderIsMachine {
			continue
		}
		var input string
		switch r.field {
		case fieldSender:
			input = sender
		case fieldSubject:
			input = subject
		case fieldBody:
			input = body
		}
		if r.pattern.MatchString(input) {
			totals[r.category] += r.weight
		}
	}

	best := core.CategoryUnclassified
	bestScore := 0.0
	for _, category := range rulePriority {
		s := totals[category]
		if s > 1.0 {
			s = 1.0
		}
		if s > bestScore {
			best = category
			bestScore = s
		}
	}
	if bestScore < MinConfidence {
		return core.CategoryUnclassified, bestScore
	}
	return best, bestScore
}

// extractURL returns the most job-like link in the body, or the first link
// when none look job-related.
func extractURL(body string) string {
	matches := urlPattern.FindAllString(body, 20)
	if len(matches) == 0 {
		return ""
	}
	for _, m := range matches {
		if jobishURL.MatchString(m) {
			return strings.TrimRight(m, ".,;")
		}
	}
	return strings.TrimRight(matches[0], ".,;")
}

func extractCompany(subject, body string) string {
	for _, p := range []*regexp.Regexp{companyApplied, companySubject} {
		if m := p.FindStringSubmatch(subject); m != nil {
			return cleanName(m[1])
		}
	}
	for _, p := range []*regexp.Regexp{companyApplied, companyHiring, companyLabeled} {
		if m := p.FindStringSubmatch(body); m != nil {
			return cleanName(m[1])
		}
	}
	return ""
}

func extractTitle(subject, body string) string {
	for _, p := range []*regexp.Regexp{titleJobsFor, titleLeading} {
		if m := p.FindStringSubmatch(subject); m != nil {
			return cleanName(m[1])
		}
	}
	for _, p := range []*regexp.Regexp{titleForThe, titlePosition} {
		if m := p.FindStringSubmatch(body); m != nil {
			return cleanName(m[1])
		}
	}
	return ""
}

// makeExcerpt collapses whitespace and keeps the opening of the body as a
// human-readable preview.
func makeExcerpt(body string) string {
	s := whitespaceRun.ReplaceAllString(strings.TrimSpace(body), " ")
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// cleanName trims quotes, trailing punctuation and stray whitespace from an
// extracted company or title.
func cleanName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'“”`)
	s = strings.TrimRight(s, ".,;:!-")
	return strings.TrimSpace(s)
}
