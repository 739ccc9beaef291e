package messages

type Status string

const (
	StatusSuccess            Status = "success"
	StatusNoProfile          Status = "no_profile"
	StatusInvalidKey         Status = "invalid_key"
	StatusNoFields           Status = "no_fields"
	StatusContextInvalidated Status = "context_invalidated"
	StatusError              Status = "error"
)

// Response is what a frame answers to a runtime message. Messages without a
// response contract get the zero value.
type Response struct {
	Status   Status `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
	HasForms *bool  `json:"hasForms,omitempty"`
}

// Forms builds a checkForms answer.
func Forms(has bool) Response {
	return Response{HasForms: &has}
}

// Found reports the hasForms answer; a missing flag means none.
func (r Response) Found() bool {
	return r.HasForms != nil && *r.HasForms
}
