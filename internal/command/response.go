package command

import (
	"github.com/mfenderov/pageocr/pkg/models"
)

// StatusNoResource reports that a page has nothing to transcribe.
const StatusNoResource = "no_resource"

// ExistingRef points at the entry already linked to a resource URL.
type ExistingRef struct {
	Digest models.Digest `json:"digest"`
}

type InitResponse struct {
	Resource      *models.ResolvedResource `json:"resource,omitempty"`
	EmbeddedURL   string                   `json:"embedded_url,omitempty"`
	Existing      *ExistingRef             `json:"existing,omitempty"`
	Entries       []models.Entry           `json:"entries"`
	HasCredential bool                     `json:"has_credential"`
	PendingPrompt *models.PendingPrompt    `json:"pending_prompt,omitempty"`
	IncludeImages bool                     `json:"include_images"`
}

type RunOcrResponse struct {
	Status string        `json:"status"`
	Digest models.Digest `json:"digest,omitempty"`
	Entry  *models.Entry `json:"entry,omitempty"`
}

type OpenArtifactResponse struct {
	Folder         string `json:"folder"`
	TranscriptPath string `json:"transcript_path"`
	ExternalID     string `json:"external_id,omitempty"`
}

type EntriesResponse struct {
	Entries []models.Entry `json:"entries"`
}

type TranscriptResponse struct {
	Text string `json:"text"`
}

type ObserveResponseResult struct {
	Recorded bool `json:"recorded"`
}

type NavigationResponse struct {
	Queued bool `json:"queued"`
}

// Empty is returned by commands with nothing to report.
type Empty struct{}
