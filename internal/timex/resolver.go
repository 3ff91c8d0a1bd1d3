// Package timex recognizes natural-language time phrases and normalizes them
// into candidate windows. The recognizer itself is the when library; this
// package only shapes its output.
package timex

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"courierbot/internal/models"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// rangePattern splits phrases like "between monday 9am and friday 5pm" or
// "from 9am to 5pm" into two sub-phrases resolved independently.
var rangePattern = regexp.MustCompile(`(?i)^\s*(?:between|from)\s+(.+?)\s+(?:and|to|until|till)\s+(.+?)\s*$`)

type Resolver struct {
	parser *when.Parser
}

func New() *Resolver {
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)
	return &Resolver{parser: parser}
}

// Resolve returns zero or more candidates for the phrase, ordered by their
// anchor instant ascending. A phrase that recognizes nothing yields nil.
func (r *Resolver) Resolve(phrase string, ref time.Time) []models.TimeCandidate {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil
	}

	if candidate, ok := r.resolveRange(phrase, ref); ok {
		return []models.TimeCandidate{candidate}
	}

	var candidates []models.TimeCandidate
	rest := phrase
	for rest != "" {
		result, err := r.parser.Parse(rest, ref)
		if err != nil || result == nil {
			break
		}

		candidates = append(candidates, instantCandidate(result.Time))
		rest = rest[result.Index+len(result.Text):]
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].When.Before(candidates[j].When)
	})

	return candidates
}

func (r *Resolver) resolveRange(phrase string, ref time.Time) (models.TimeCandidate, bool) {
	match := rangePattern.FindStringSubmatch(phrase)
	if match == nil {
		return models.TimeCandidate{}, false
	}

	startResult, err := r.parser.Parse(match[1], ref)
	if err != nil || startResult == nil {
		return models.TimeCandidate{}, false
	}
	endResult, err := r.parser.Parse(match[2], startResult.Time)
	if err != nil || endResult == nil {
		return models.TimeCandidate{}, false
	}

	start := startResult.Time
	end := endResult.Time
	if end.Before(start) {
		start, end = end, start
	}

	window := models.TimeWindow{
		Timex: "(" + timexFor(start) + "," + timexFor(end) + ")",
		Kind:  models.WindowRange,
		Start: start.Format(models.WindowValueLayout),
		End:   end.Format(models.WindowValueLayout),
	}

	return models.TimeCandidate{Window: window, When: start}, true
}

func instantCandidate(t time.Time) models.TimeCandidate {
	kind := models.WindowDateTime
	if t.Hour() == 0 && t.Minute() == 0 {
		kind = models.WindowDate
	}

	return models.TimeCandidate{
		Window: models.TimeWindow{
			Timex: timexFor(t),
			Kind:  kind,
			Value: t.Format(models.WindowValueLayout),
		},
		When: t,
	}
}

func timexFor(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04")
}
