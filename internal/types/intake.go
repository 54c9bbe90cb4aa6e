package types

import (
	"github.com/go-playground/validator/v10"
)

// IntakeRequest is the payload accepted at the intake boundary: a document id
// plus either inline content or a reference to stored raw bytes.
type IntakeRequest struct {
	DocumentID    string `json:"document_id" validate:"required,min=1,max=128"`
	Source        string `json:"source,omitempty" validate:"omitempty,max=128"`
	Location      string `json:"location,omitempty" validate:"required_without=ContentBase64"`
	ContentBase64 string `json:"content_base64,omitempty" validate:"required_without=Location"`
	FileName      string `json:"file_name,omitempty"`
}

// Validate validates the IntakeRequest using the validator.
func (r *IntakeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
