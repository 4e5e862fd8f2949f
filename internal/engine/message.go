package engine

import (
	"encoding/json"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound request types.
const (
	TypeAnalyze           = "analyze"
	TypeTranscribe        = "transcribe"
	TypeReindexFaces      = "reindex_faces"
	TypeFindMatchingFaces = "find_matching_faces"
	TypeHealth            = "health"
)

// Inbound reply types, three per capability plus the transcriber's
// free-form message stream and the health status reply.
const (
	TypeAnalysisProgress = "analysis_progress"
	TypeAnalysisResult   = "analysis_result"
	TypeAnalysisError    = "analysis_error"

	TypeTranscriptionProgress = "transcription_progress"
	TypeTranscriptionMessage  = "transcription_message"
	TypeTranscriptionComplete = "transcription_complete"
	TypeTranscriptionError    = "transcription_error"

	TypeReindexProgress = "reindex_progress"
	TypeReindexComplete = "reindex_complete"
	TypeReindexError    = "reindex_error"

	TypeFaceMatchProgress = "face_match_progress"
	TypeFaceMatchComplete = "face_match_complete"
	TypeFaceMatchError    = "face_match_error"

	TypeStatus = "status"
	TypeError  = "error"
)

// capability binds a request type to its reply types. messageType is
// empty for capabilities without a side-channel message stream.
type capability struct {
	request     string
	progress    string
	result      string
	errType     string
	messageType string
}

var (
	analyzeCapability = capability{
		request:  TypeAnalyze,
		progress: TypeAnalysisProgress,
		result:   TypeAnalysisResult,
		errType:  TypeAnalysisError,
	}
	transcribeCapability = capability{
		request:     TypeTranscribe,
		progress:    TypeTranscriptionProgress,
		result:      TypeTranscriptionComplete,
		errType:     TypeTranscriptionError,
		messageType: TypeTranscriptionMessage,
	}
	reindexFacesCapability = capability{
		request:  TypeReindexFaces,
		progress: TypeReindexProgress,
		result:   TypeReindexComplete,
		errType:  TypeReindexError,
	}
	findMatchingFacesCapability = capability{
		request:  TypeFindMatchingFaces,
		progress: TypeFaceMatchProgress,
		result:   TypeFaceMatchComplete,
		errType:  TypeFaceMatchError,
	}
)

func (c capability) replyTypes() []string {
	types := []string{c.progress, c.result, c.errType}
	if c.messageType != "" {
		types = append(types, c.messageType)
	}
	return types
}

type analyzePayload struct {
	VideoPath string `json:"video_path"`
}

type transcribePayload struct {
	VideoPath    string `json:"video_path"`
	JSONFilePath string `json:"json_file_path"`
}

type findMatchingFacesPayload struct {
	PersonName      string   `json:"person_name"`
	ReferenceImages []string `json:"reference_images"`
	UnknownFacesDir string   `json:"unknown_faces_dir"`
	Tolerance       float64  `json:"tolerance"`
}

type progressPayload struct {
	Progress    float64 `json:"progress"`
	Message     string  `json:"message"`
	Output      string  `json:"output"`
	ElapsedTime string  `json:"elapsed_time"`
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (p errorPayload) text() string {
	if p.Message != "" {
		return p.Message
	}
	if p.Error != "" {
		return p.Error
	}
	return "engine reported an unspecified error"
}

type statusPayload struct {
	Status string `json:"status"`
}
