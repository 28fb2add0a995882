package classify

import (
	"regexp"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
)

// field names which part of the email a rule inspects
type field int

const (
	fieldSender field = iota
	fieldSubject
	fieldBody
)

// rule is one weighted classification signal. The table below is the single
// source of truth for category scoring: adding a signal is a data change.
type rule struct {
	category core.EmailCategory
	field    field
	pattern  *regexp.Regexp
	weight   float64
}

// rulePriority breaks score ties declaratively. Confirmations are cheapest to
// verify and most valuable to act on correctly, so they win over listings,
// which win over outreach.
var rulePriority = []core.EmailCategory{
	core.CategoryConfirmation,
	core.CategoryJobListing,
	core.CategoryRecruiterReach,
}

// automatedSenders matches senders that are clearly machines, which makes
// first-person recruiter phrasing implausible. All quantifiers are bounded.
var automatedSenders = regexp.MustCompile(`(?i)(?:no[.\-_]?reply|do[.\-_]?not[.\-_]?reply|notifications?|alerts?|jobs?|digest|mailer)@|@(?:linkedin\.com|indeed\.com|glassdoor\.com|ziprecruiter\.com|monster\.com|dice\.com|greenhouse(?:-mail)?\.io|lever\.co|ashbyhq\.com|smartrecruiters\.com|icims\.com|jobvite\.com|myworkday(?:jobs)?\.com)`)

var ruleTable = []rule{
	// Application-confirmation signals: applicant-tracking-system senders and
	// receipt phrasing.
	{core.CategoryConfirmation, fieldSender, regexp.MustCompile(`(?i)@(?:greenhouse(?:-mail)?\.io|lever\.co|ashbyhq\.com|smartrecruiters\.com|icims\.com|jobvite\.com|myworkday(?:jobs)?\.com|taleo\.net|workablemail\.com)`), 0.6},
	{core.CategoryConfirmation, fieldSubject, regexp.MustCompile(`(?i)(?:application\s{1,4}(?:was\s{1,4})?received|thank\s{1,4}you\s{1,4}for\s{1,4}applying|your\s{1,4}application\s{1,4}(?:to|at|for|was)|we\s{1,4}(?:have|['’]ve)\s{1,4}received\s{1,4}your\s{1,4}application)`), 0.6},
	{core.CategoryConfirmation, fieldBody, regexp.MustCompile(`(?i)(?:(?:we\s{1,4}(?:have|['’]ve)\s{1,4})?received\s{1,4}your\s{1,4}application|application\s{1,4}has\s{1,4}been\s{1,4}(?:received|submitted)|thank\s{1,4}you\s{1,4}for\s{1,4}(?:applying|your\s{1,4}(?:interest|application))|will\s{1,4}review\s{1,4}your\s{1,4}(?:application|resume|cv))`), 0.5},

	// Job-listing signals: board digests and alert phrasing.
	{core.CategoryJobListing, fieldSender, regexp.MustCompile(`(?i)@(?:linkedin\.com|indeed\.com|glassdoor\.com|ziprecruiter\.com|monster\.com|dice\.com|builtin\.com|wellfound\.com|otta\.com)|(?:jobs?|job[\-_]?alerts?)@`), 0.5},
	{core.CategoryJobListing, fieldSubject, regexp.MustCompile(`(?i)(?:\d{1,4}\+?\s{1,4}new\s{1,4}jobs?|job\s{1,4}alert|jobs?\s{1,4}for\s{1,4}you|recommended\s{1,4}(?:jobs?|roles?)|new\s{1,4}(?:openings?|positions?|roles?)\b)`), 0.6},
	{core.CategoryJobListing, fieldBody, regexp.MustCompile(`(?i)(?:apply\s{1,4}now|view\s{1,4}(?:job|all\s{1,4}jobs)|is\s{1,4}hiring|job\s{1,4}openings?|see\s{1,4}more\s{1,4}jobs)`), 0.4},

	// Recruiter-outreach signals: first-person solicitation phrasing. Scoring
	// skips these when the sender matches automatedSenders.
	{core.CategoryRecruiterReach, fieldBody, regexp.MustCompile(`(?i)(?:i\s{1,4}(?:came|ran)\s{1,4}across\s{1,4}your\s{1,4}(?:profile|resume|background|work)|i\s{1,4}(?:am|['’]m)\s{1,4}(?:a\s{1,4})?(?:technical\s{1,4})?recruit(?:er|ing)|i\s{1,4}(?:am|['’]m)\s{1,4}reaching\s{1,4}out|your\s{1,4}(?:background|experience)\s{1,4}(?:caught|stood|would)|(?:great|strong|good)\s{1,4}fit\s{1,4}for)`), 0.5},
	{core.CategoryRecruiterReach, fieldSubject, regexp.MustCompile(`(?i)(?:exciting\s{1,4})?opportunit(?:y|ies)|quick\s{1,4}(?:chat|call|question)|role\s{1,4}(?:at|with)\s{1,4}\S{2,50}|interested\s{1,4}in\s{1,4}connecting`), 0.3},
	{core.CategoryRecruiterReach, fieldBody, regexp.MustCompile(`(?i)(?:would\s{1,4}(?:you|love)\s{1,4}(?:be\s{1,4}open|to\s{1,4}(?:chat|connect|discuss))|are\s{1,4}you\s{1,4}open\s{1,4}to\s{1,4}(?:new\s{1,4})?(?:opportunities|roles|a\s{1,4}conversation))`), 0.3},
}
