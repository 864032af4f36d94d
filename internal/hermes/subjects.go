package hermes

import "strings"

const (
	// SubjectPeriodChangedAll matches the change notification of every period.
	SubjectPeriodChangedAll = "admissions.period.*.changed"

	StreamName   = "ADMISSIONS_EVENTS"
	StreamMaxAge = "2160h" // 90 days
)

func SubjectPeriodCreated(periodID string) string { return "admissions.period." + periodID + ".created" }
func SubjectPeriodDeleted(periodID string) string { return "admissions.period." + periodID + ".deleted" }
func SubjectWeightsUpdated(periodID string) string {
	return "admissions.period." + periodID + ".weights_updated"
}
func SubjectCriteriaChanged(periodID string) string {
	return "admissions.period." + periodID + ".criteria_changed"
}
func SubjectCandidatesImported(periodID string) string {
	return "admissions.period." + periodID + ".candidates_imported"
}
func SubjectRankingComputed(periodID string) string {
	return "admissions.period." + periodID + ".ranking_computed"
}

// SubjectPeriodChanged is published after any mutation of a period's ranking
// inputs. Every instance drops its cached ranking on receipt.
func SubjectPeriodChanged(periodID string) string { return "admissions.period." + periodID + ".changed" }

// PeriodIDFromSubject extracts the period id from an admissions.period.<id>.* subject.
func PeriodIDFromSubject(subject string) string {
	rest, ok := strings.CutPrefix(subject, "admissions.period.")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, ".")
	return id
}
