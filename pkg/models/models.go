package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Digest is the hex-encoded SHA-256 of a resource's raw bytes.
type Digest string

// ComputeDigest hashes the raw resource bytes.
func ComputeDigest(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// Short returns the first 12 characters, for log lines.
func (d Digest) Short() string {
	if len(d) <= 12 {
		return string(d)
	}
	return string(d[:12])
}

// Kind classifies a resolved resource.
type Kind string

const (
	KindDocument Kind = "document"
	KindImage    Kind = "image"
)

// ResolvedResource is what the resolver decided to OCR for a page.
// It is never persisted.
type ResolvedResource struct {
	URL      string `json:"url"`
	NameHint string `json:"name_hint"`
	Kind     Kind   `json:"kind"`
	Strategy string `json:"strategy"`

	// Provided holds bytes obtained during resolution (office exports).
	Provided []byte `json:"-"`
	// ContentDisposition is a header captured during resolution, if any.
	ContentDisposition string `json:"-"`
}

// FileHandle references one persisted artifact.
type FileHandle struct {
	Path       string `json:"path"`
	ExternalID string `json:"external_id,omitempty"`
}

// EntryFiles groups the artifacts written for an Entry.
type EntryFiles struct {
	Transcript FileHandle   `json:"transcript"`
	Images     []FileHandle `json:"images,omitempty"`
}

// Entry is the persisted record of one completed transcription.
type Entry struct {
	Digest         Digest     `json:"digest"`
	DisplayName    string     `json:"display_name"`
	SourceURL      string     `json:"source_url"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	PageCount      int        `json:"page_count"`
	ImageCount     int        `json:"image_count"`
	StorageFolder  string     `json:"storage_folder"`
	Files          EntryFiles `json:"files"`
	TranscriptText string     `json:"transcript_text,omitempty"`
}

// Summary strips the cached transcript for list views.
func (e Entry) Summary() Entry {
	e.TranscriptText = ""
	return e
}

// PendingPrompt records that a page being viewed already has an Entry.
type PendingPrompt struct {
	ID          string    `json:"id"`
	Digest      Digest    `json:"digest"`
	PageContext string    `json:"page_context"`
	PageURL     string    `json:"page_url"`
	At          time.Time `json:"at"`
}

// EmbedCandidate is an embed/object/iframe element reported for a page.
type EmbedCandidate struct {
	Tag  string `json:"tag"`
	Src  string `json:"src"`
	Type string `json:"type,omitempty"`
}

// Page describes the page the user is viewing.
type Page struct {
	// Context identifies the page session (browser tab id).
	Context string           `json:"context"`
	URL     string           `json:"url"`
	Title   string           `json:"title,omitempty"`
	HTML    string           `json:"html,omitempty"`
	Embeds  []EmbedCandidate `json:"embeds,omitempty"`
}
