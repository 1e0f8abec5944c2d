// Package command defines the closed set of commands clients can send and
// dispatches them to the application.
package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mfenderov/pageocr/pkg/models"
)

// Command type names, as sent in the "type" field.
const (
	TypeInit               = "init"
	TypeRunOcr             = "run_ocr"
	TypeOpenArtifact       = "open_artifact"
	TypeListEntries        = "list_entries"
	TypeDeleteEntry        = "delete_entry"
	TypeGetTranscript      = "get_transcript"
	TypeSetImagePreference = "set_image_preference"
	TypeClearAutoPrompt    = "clear_auto_prompt"
	TypeObserveResponse    = "observe_response"
	TypeNavigationComplete = "navigation_complete"
	TypeSearchTranscripts  = "search_transcripts"
)

// ErrUnknownCommand is returned by Decode for an unrecognized type.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one of the request types below. The unexported method keeps
// the set closed to this package.
type Command interface {
	Type() string
	isCommand()
}

type Init struct {
	Page models.Page `json:"page"`
}

type RunOcr struct {
	Page models.Page `json:"page"`
}

type OpenArtifact struct {
	Digest models.Digest `json:"digest"`
}

type ListEntries struct{}

type DeleteEntry struct {
	Digest models.Digest `json:"digest"`
}

type GetTranscript struct {
	Digest models.Digest `json:"digest"`
}

type SetImagePreference struct {
	Include bool `json:"include"`
}

// ClearAutoPrompt clears the prompt of one page context, or all prompts
// when PageContext is empty.
type ClearAutoPrompt struct {
	PageContext string `json:"page_context,omitempty"`
}

// ObserveResponse reports a document response seen while a viewer page loaded.
type ObserveResponse struct {
	PageContext        string `json:"page_context"`
	URL                string `json:"url"`
	ContentType        string `json:"content_type"`
	ContentDisposition string `json:"content_disposition"`
}

type NavigationComplete struct {
	Page models.Page `json:"page"`
}

type SearchTranscripts struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (Init) Type() string               { return TypeInit }
func (RunOcr) Type() string             { return TypeRunOcr }
func (OpenArtifact) Type() string       { return TypeOpenArtifact }
func (ListEntries) Type() string        { return TypeListEntries }
func (DeleteEntry) Type() string        { return TypeDeleteEntry }
func (GetTranscript) Type() string      { return TypeGetTranscript }
func (SetImagePreference) Type() string { return TypeSetImagePreference }
func (ClearAutoPrompt) Type() string    { return TypeClearAutoPrompt }
func (ObserveResponse) Type() string    { return TypeObserveResponse }
func (NavigationComplete) Type() string { return TypeNavigationComplete }
func (SearchTranscripts) Type() string  { return TypeSearchTranscripts }

func (Init) isCommand()               {}
func (RunOcr) isCommand()             {}
func (OpenArtifact) isCommand()       {}
func (ListEntries) isCommand()        {}
func (DeleteEntry) isCommand()        {}
func (GetTranscript) isCommand()      {}
func (SetImagePreference) isCommand() {}
func (ClearAutoPrompt) isCommand()    {}
func (ObserveResponse) isCommand()    {}
func (NavigationComplete) isCommand() {}
func (SearchTranscripts) isCommand()  {}

// Decode parses a {"type": "...", ...} envelope into its Command.
func Decode(data []byte) (Command, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	var cmd Command
	switch envelope.Type {
	case TypeInit:
		cmd = &Init{}
	case TypeRunOcr:
		cmd = &RunOcr{}
	case TypeOpenArtifact:
		cmd = &OpenArtifact{}
	case TypeListEntries:
		return ListEntries{}, nil
	case TypeDeleteEntry:
		cmd = &DeleteEntry{}
	case TypeGetTranscript:
		cmd = &GetTranscript{}
	case TypeSetImagePreference:
		cmd = &SetImagePreference{}
	case TypeClearAutoPrompt:
		cmd = &ClearAutoPrompt{}
	case TypeObserveResponse:
		cmd = &ObserveResponse{}
	case TypeNavigationComplete:
		cmd = &NavigationComplete{}
	case TypeSearchTranscripts:
		cmd = &SearchTranscripts{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, envelope.Type)
	}

	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("invalid %s command: %w", envelope.Type, err)
	}
	return deref(cmd), nil
}

// deref returns commands by value so dispatch can switch on value types.
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *Init:
		return *c
	case *RunOcr:
		return *c
	case *OpenArtifact:
		return *c
	case *DeleteEntry:
		return *c
	case *GetTranscript:
		return *c
	case *SetImagePreference:
		return *c
	case *ClearAutoPrompt:
		return *c
	case *ObserveResponse:
		return *c
	case *NavigationComplete:
		return *c
	case *SearchTranscripts:
		return *c
	}
	return cmd
}
