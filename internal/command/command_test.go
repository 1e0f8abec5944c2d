package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Command
	}{
		{"init", `{"type":"init","page":{"context":"1","url":"https://x.test/a.pdf"}}`, Init{}},
		{"run_ocr", `{"type":"run_ocr","page":{"url":"https://x.test/a.pdf"}}`, RunOcr{}},
		{"open_artifact", `{"type":"open_artifact","digest":"abc"}`, OpenArtifact{Digest: "abc"}},
		{"list_entries", `{"type":"list_entries"}`, ListEntries{}},
		{"delete_entry", `{"type":"delete_entry","digest":"abc"}`, DeleteEntry{Digest: "abc"}},
		{"get_transcript", `{"type":"get_transcript","digest":"abc"}`, GetTranscript{Digest: "abc"}},
		{"set_image_preference", `{"type":"set_image_preference","include":true}`, SetImagePreference{Include: true}},
		{"clear_auto_prompt", `{"type":"clear_auto_prompt"}`, ClearAutoPrompt{}},
		{"clear_auto_prompt", `{"type":"clear_auto_prompt","page_context":"tab-2"}`, ClearAutoPrompt{PageContext: "tab-2"}},
		{"observe_response", `{"type":"observe_response","page_context":"7","url":"https://x.test/f","content_type":"application/pdf"}`,
			ObserveResponse{PageContext: "7", URL: "https://x.test/f", ContentType: "application/pdf"}},
		{"navigation_complete", `{"type":"navigation_complete","page":{"url":"https://x.test"}}`, NavigationComplete{}},
		{"search_transcripts", `{"type":"search_transcripts","query":"invoice","limit":5}`, SearchTranscripts{Query: "invoice", Limit: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.name, got.Type())
			assert.IsType(t, tt.want, got)

			switch want := tt.want.(type) {
			case Init, RunOcr, NavigationComplete:
			default:
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestDecode_PageFields(t *testing.T) {
	got, err := Decode([]byte(`{"type":"run_ocr","page":{"context":"tab-3","url":"https://x.test/doc","embeds":[{"tag":"embed","src":"/f.pdf","type":"application/pdf"}]}}`))
	require.NoError(t, err)

	run := got.(RunOcr)
	assert.Equal(t, "tab-3", run.Page.Context)
	require.Len(t, run.Page.Embeds, 1)
	assert.Equal(t, "/f.pdf", run.Page.Embeds[0].Src)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"type":"format_disk"}`))
	assert.True(t, errors.Is(err, ErrUnknownCommand))

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"set_image_preference","include":"yes"}`))
	assert.Error(t, err)
}

func TestResponses_SnakeCaseFields(t *testing.T) {
	data, err := json.Marshal(InitResponse{
		EmbeddedURL:   "https://x.test/f.pdf",
		HasCredential: true,
		IncludeImages: true,
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "embedded_url")
	assert.Contains(t, fields, "has_credential")
	assert.Contains(t, fields, "include_images")

	data, err = json.Marshal(OpenArtifactResponse{Folder: "f/", TranscriptPath: "f/t.md", ExternalID: "etag"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"folder":"f/","transcript_path":"f/t.md","external_id":"etag"}`, string(data))
}
