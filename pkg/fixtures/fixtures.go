// Package fixtures loads YAML-backed rubric and candidate fixtures for
// local runs and tests. The core's collaborator contracts assume a
// database-backed RubricStore/CandidateStore in production; persistence of
// either is explicitly out of scope, so this package — plus the
// in-memory stores it feeds — exists purely to make the engine runnable
// standalone.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lattice-hire/interviewer/pkg/candidate"
	"github.com/lattice-hire/interviewer/pkg/rubric"
	"github.com/lattice-hire/interviewer/pkg/stores"
)

// criterionDoc mirrors rubric.Criterion's on-disk shape: anchors keyed by
// level string ("1".."5") because YAML map keys decode as strings.
type criterionDoc struct {
	Name    string            `yaml:"name"`
	Weight  float64           `yaml:"weight"`
	Anchors map[string]string `yaml:"anchors"`
}

type competencyDoc struct {
	Competency   string         `yaml:"competency"`
	Band         string         `yaml:"band"`
	BandNotes    []string       `yaml:"band_notes"`
	Criteria     []criterionDoc `yaml:"criteria"`
	RedFlags     []string       `yaml:"red_flags"`
	Evidence     []string       `yaml:"evidence"`
	MinPassScore float64        `yaml:"min_pass_score"`
}

// InterviewDoc is the on-disk shape of one interview fixture: the rubric
// plus the job-description summary and resume text the Competency Primer
// needs.
type InterviewDoc struct {
	InterviewID string          `yaml:"interview_id"`
	JDSummary   string          `yaml:"jd_summary"`
	ResumeText  string          `yaml:"resume_text"`
	Rubric      []competencyDoc `yaml:"rubric"`
}

// CandidateDoc is the on-disk shape of one candidate fixture.
type CandidateDoc struct {
	CandidateID            string   `yaml:"candidate_id"`
	CandidateName          string   `yaml:"candidate_name"`
	ResumeSummary          string   `yaml:"resume_summary"`
	ExperienceYears        float64  `yaml:"experience_years"`
	HighlightedExperiences []string `yaml:"highlighted_experiences"`
}

// ParseInterview decodes an InterviewDoc into its interview id plus the
// (rubric.Rubric, jdSummary, resumeText) triple the RubricStore contract
// expects.
func ParseInterview(raw []byte) (string, rubric.Rubric, string, string, error) {
	var doc InterviewDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", rubric.Rubric{}, "", "", fmt.Errorf("parsing interview fixture: %w", err)
	}

	competencies := make([]rubric.Competency, 0, len(doc.Rubric))
	for _, c := range doc.Rubric {
		criteria := make([]rubric.Criterion, 0, len(c.Criteria))
		for _, crit := range c.Criteria {
			anchors := make(map[int]string, len(crit.Anchors))
			for levelStr, text := range crit.Anchors {
				level := 0
				if _, err := fmt.Sscanf(levelStr, "%d", &level); err != nil {
					return "", rubric.Rubric{}, "", "", fmt.Errorf("criterion %q: invalid anchor level %q", crit.Name, levelStr)
				}
				anchors[level] = text
			}
			criteria = append(criteria, rubric.Criterion{
				Name:    crit.Name,
				Weight:  crit.Weight,
				Anchors: anchors,
			})
		}
		competencies = append(competencies, rubric.Competency{
			Competency:   c.Competency,
			Band:         c.Band,
			BandNotes:    c.BandNotes,
			Criteria:     criteria,
			RedFlags:     c.RedFlags,
			Evidence:     c.Evidence,
			MinPassScore: c.MinPassScore,
		})
	}

	r := rubric.Rubric{Competencies: competencies}
	if err := r.Validate(); err != nil {
		return "", rubric.Rubric{}, "", "", err
	}
	return doc.InterviewID, r, doc.JDSummary, doc.ResumeText, nil
}

// ParseCandidate decodes a CandidateDoc into (candidateID, candidate.Profile).
func ParseCandidate(raw []byte) (string, candidate.Profile, error) {
	var doc CandidateDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", candidate.Profile{}, fmt.Errorf("parsing candidate fixture: %w", err)
	}
	return doc.CandidateID, candidate.Profile{
		CandidateName:          doc.CandidateName,
		ResumeSummary:          doc.ResumeSummary,
		ExperienceYears:        doc.ExperienceYears,
		HighlightedExperiences: doc.HighlightedExperiences,
	}, nil
}

// LoadDir walks dir for "*.interview.yaml" and "*.candidate.yaml" files and
// seeds them into the given stores. A directory that does not exist is not
// an error — callers fall back to the built-in demo fixture.
func LoadDir(dir string, rubrics *stores.InMemoryRubricStore, candidates *stores.InMemoryCandidateStore) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading fixtures dir %q: %w", dir, err)
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return count, fmt.Errorf("reading %q: %w", path, err)
		}

		switch {
		case strings.HasSuffix(e.Name(), ".interview.yaml"):
			id, r, jd, resume, err := ParseInterview(raw)
			if err != nil {
				return count, fmt.Errorf("%q: %w", path, err)
			}
			rubrics.Seed(id, r, jd, resume)
			count++
		case strings.HasSuffix(e.Name(), ".candidate.yaml"):
			id, p, err := ParseCandidate(raw)
			if err != nil {
				return count, fmt.Errorf("%q: %w", path, err)
			}
			candidates.Seed(id, p)
			count++
		}
	}
	return count, nil
}

// Demo returns a single built-in interview/candidate pair so the server is
// runnable with zero fixture files on disk.
func Demo() (interviewID string, r rubric.Rubric, jdSummary, resumeText string, candidateID string, prof candidate.Profile) {
	r = rubric.Rubric{
		Competencies: []rubric.Competency{
			{
				Competency: "Distributed Systems",
				Band:       "5-8 years",
				BandNotes:  []string{"expects ownership of at least one production system under real load"},
				Criteria: []rubric.Criterion{
					{
						Name:   "Failure handling",
						Weight: 0.6,
						Anchors: map[int]string{
							1: "no mention of failure modes",
							2: "names a failure mode without mitigation",
							3: "describes a retry or timeout strategy",
							4: "describes a mitigation with a tradeoff (e.g. idempotency, backoff)",
							5: "ties the mitigation to an incident or measured outcome",
						},
					},
					{
						Name:   "Scaling rationale",
						Weight: 0.4,
						Anchors: map[int]string{
							1: "no scaling discussion",
							2: "names a bottleneck without addressing it",
							3: "describes horizontal scaling at a high level",
							4: "justifies a specific partitioning or sharding scheme",
							5: "quantifies the scaling decision with load numbers",
						},
					},
				},
				RedFlags:     []string{"claims no system ever failed in production"},
				Evidence:     []string{"a system they operated, not just designed"},
				MinPassScore: 3,
			},
		},
	}
	jdSummary = "Senior backend engineer to own a distributed order-processing pipeline."
	resumeText = "Built and operated a payments reconciliation service handling 2M events/day."

	prof = candidate.Profile{
		CandidateName:          "Jordan Rivera",
		ResumeSummary:          resumeText,
		ExperienceYears:        6,
		HighlightedExperiences: []string{"payments reconciliation service", "on-call rotation lead"},
	}
	return "demo-interview", r, jdSummary, resumeText, "demo-candidate", prof
}
