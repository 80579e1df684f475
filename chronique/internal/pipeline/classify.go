package pipeline

import "strings"

// Event and source categories. Both classifiers are ordered,
// first-match-wins substring scans over lowercased input; order matters
// ("committee" must hit hearing before press_conference gets a chance at
// "press", and hansard outranks committee for parliamentary publishers).

const (
	EventSpeech          = "speech"
	EventInterview       = "interview"
	EventStatement       = "statement"
	EventVote            = "vote"
	EventHearing         = "hearing"
	EventPressConference = "press_conference"
)

const (
	SourceHansard      = "hansard"
	SourceCommittee    = "committee"
	SourcePressRelease = "press_release"
	SourceMedia        = "media"
)

type keywordRule struct {
	label    string
	keywords []string
}

var eventTypeRules = []keywordRule{
	{EventSpeech, []string{"speech", "address", "speak"}},
	{EventInterview, []string{"interview"}},
	{EventStatement, []string{"statement", "announce"}},
	{EventVote, []string{"vote", "voted"}},
	{EventHearing, []string{"hearing", "committee"}},
	{EventPressConference, []string{"press", "conference"}},
}

var sourceTypeRules = []keywordRule{
	{SourceHansard, []string{"parliament", "hansard"}},
	{SourceCommittee, []string{"committee"}},
	{SourcePressRelease, []string{"press", "release"}},
}

// ClassifyEventType infers a coarse category from a free-text event title.
// Defaults to statement.
func ClassifyEventType(title string) string {
	return classify(title, eventTypeRules, EventStatement)
}

// ClassifySourceType infers a coarse category from a free-text publisher
// name. Defaults to media.
func ClassifySourceType(publisher string) string {
	return classify(publisher, sourceTypeRules, SourceMedia)
}

func classify(text string, rules []keywordRule, def string) string {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return def
}
