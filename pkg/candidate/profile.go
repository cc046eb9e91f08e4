// Package candidate defines the read-only candidate profile consumed by
// the primer and questioner agents.
package candidate

// Profile is the candidate's resume-derived context for a session.
type Profile struct {
	CandidateName          string
	ResumeSummary          string
	ExperienceYears        float64
	HighlightedExperiences []string
}
