package analyzer

import (
	"time"

	"github.com/vitebski/csv-synth/pkg/models"
)

const (
	// dateSampleSize is the number of distinct values tried against every candidate format
	dateSampleSize = 5

	// dateThreshold is the share of non-null values a format must parse, strictly exceeded
	dateThreshold = 0.5

	// maxDateCandidates bounds the literal date list written for the generator
	maxDateCandidates = 20
)

var (
	monthYearFormats = []string{"%Y%m", "%m%Y", "%Y-%m", "%m-%Y", "%Y/%m", "%m/%Y"}

	dateFormats = []string{
		"%Y-%m-%d", "%d-%m-%Y", "%m-%d-%Y", "%Y/%m/%d", "%m/%d/%Y", "%m/%d/%y",
		"%Y%m%d", "%d%m%Y", "%m%d%Y",
	}

	timeFormats = []string{"%H:%M:%S", "%H:%M"}
)

// DateCandidates is the ordered list of formats tried during date detection.
// When several formats match, the earliest in this list that clears the
// threshold wins, even if a later one matches more values.
var DateCandidates = buildDateCandidates()

func buildDateCandidates() []string {
	var out []string
	out = append(out, monthYearFormats...)
	out = append(out, dateFormats...)
	out = append(out, timeFormats...)
	for _, d := range dateFormats {
		for _, t := range timeFormats {
			out = append(out, d+" "+t)
		}
	}
	return out
}

// DetectDateFormat returns the first candidate format that parses at least
// one of the sampled values and more than half of all values, or
// models.Inconclusive.
func DetectDateFormat(values []string) string {
	if len(values) == 0 {
		return models.Inconclusive
	}

	sample := distinctValues(values, dateSampleSize)

	for _, format := range DateCandidates {
		if !anyParses(sample, format) {
			continue
		}
		if MatchProportion(values, format) > dateThreshold {
			return format
		}
	}

	return models.Inconclusive
}

// MatchProportion returns the share of values that parse under format
func MatchProportion(values []string, format string) float64 {
	if len(values) == 0 {
		return 0
	}
	matched := 0
	for _, v := range values {
		if _, ok := Strptime(v, format); ok {
			matched++
		}
	}
	return float64(matched) / float64(len(values))
}

func anyParses(values []string, format string) bool {
	for _, v := range values {
		if _, ok := Strptime(v, format); ok {
			return true
		}
	}
	return false
}

// dateCandidateValues builds an evenly spaced, chronological list of dates
// between the earliest and latest parsed values, rendered in format
func dateCandidateValues(values []string, format string) []string {
	var (
		lo, hi time.Time
		seen   = make(map[time.Time]struct{})
	)
	for _, v := range values {
		t, ok := Strptime(v, format)
		if !ok {
			continue
		}
		if len(seen) == 0 || t.Before(lo) {
			lo = t
		}
		if len(seen) == 0 || t.After(hi) {
			hi = t
		}
		seen[t] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}

	n := len(seen)
	if n > maxDateCandidates {
		n = maxDateCandidates
	}
	if n == 1 {
		return []string{Strftime(lo, format)}
	}

	// Step in whole seconds; a time.Duration saturates after about 292 years
	span := hi.Unix() - lo.Unix()
	out := make([]string, 0, n)
	emitted := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		t := time.Unix(lo.Unix()+span*int64(i)/int64(n-1), 0).In(lo.Location())
		if i == n-1 {
			t = hi
		}
		s := Strftime(t, format)
		if _, dup := emitted[s]; dup {
			continue
		}
		emitted[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// distinctValues returns up to limit distinct values in order of first appearance;
// limit <= 0 means no limit
func distinctValues(values []string, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
