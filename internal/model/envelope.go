package model

// Source tells which data source served a request.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceNone   Source = "none"
)

// Response is the uniform envelope returned by the API and by every service
// operation. Callers branch on Status only.
type Response[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
	Source  Source `json:"source,omitempty"`
}

// Page is one window of a filtered list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// List is the envelope of a paginated list.
type List[T any] = Response[Page[T]]

// OK builds a successful envelope.
func OK[T any](data T, message string, source Source) Response[T] {
	return Response[T]{Status: true, Message: message, Data: data, Source: source}
}

// Fail builds a failed envelope carrying the zero value of T.
func Fail[T any](message string) Response[T] {
	var zero T
	return Response[T]{Status: false, Message: message, Data: zero, Source: SourceNone}
}

// FromLocal reports whether the envelope was served by the local snapshot,
// i.e. the application is running in demo mode.
func (r Response[T]) FromLocal() bool {
	return r.Source == SourceLocal
}
