package models

// FaceMatchInput drives the find_matching_faces capability.
type FaceMatchInput struct {
	PersonName      string   `json:"person_name" validate:"required,lte=255"`
	ReferenceImages []string `json:"reference_images" validate:"required,min=1"`
	UnknownFacesDir string   `json:"unknown_faces_dir" validate:"required"`
	Tolerance       float64  `json:"tolerance" validate:"omitempty,gt=0,lte=1"`
}

type FaceMatch struct {
	JSONFile   string         `json:"json_file"`
	ImageFile  string         `json:"image_file"`
	Confidence float64        `json:"confidence"`
	FaceData   map[string]any `json:"face_data,omitempty"`
}

type FaceMatchResult struct {
	PersonName string       `json:"person_name"`
	Matches    []*FaceMatch `json:"matches"`
}
