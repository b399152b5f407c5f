package processsubmission

import "assessment-pipeline/internal/models"

// State is a step in the life of one submission.
type State string

const (
	StateReceived      State = "Received"
	StateScored        State = "Scored"
	StatePersisted     State = "Persisted"
	StateAnalyzing     State = "Analyzing"
	StateRendering     State = "Rendering"
	StateNotifying     State = "Notifying"
	StateComplete      State = "Complete"
	StatePersistFailed State = "PersistFailed"
)

// Stage1Request is the public submission body.
type Stage1Request struct {
	OrganizationName string            `json:"organizationName"`
	StaffCount       *int              `json:"staffCount,omitempty"`
	ContactName      string            `json:"contactName"`
	ContactEmail     string            `json:"contactEmail"`
	ContactPhone     string            `json:"contactPhone,omitempty"`
	Answers          map[string]string `json:"answers"`
}

type Stage1Response struct {
	SubmissionID string              `json:"submissionId"`
	Percentage   int                 `json:"percentage"`
	MaturityTier models.MaturityTier `json:"maturityTier"`
	Message      string              `json:"message"`
}

// Stage2Status reports which Stage 2 steps produced their outcome.
type Stage2Status struct {
	AnalysisGenerated bool   `json:"analysisGenerated"`
	ArtifactGenerated bool   `json:"artifactGenerated"`
	ContactNotified   bool   `json:"contactNotified"`
	AdminsNotified    bool   `json:"adminsNotified"`
	ArtifactURL       string `json:"artifactUrl,omitempty"`
	ElapsedMs         int64  `json:"elapsedMs"`
}

// Input is the variable set of a Stage 2 job.
type Input struct {
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	SubmissionID string `json:"submissionId"`
	Stage2Status
}

const acceptedMessage = "Thank you. Your assessment has been received and your detailed report will be emailed to you shortly."
