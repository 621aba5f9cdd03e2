package model

// PageRequest is the window of one page fetch.
type PageRequest struct {
	Offset int
	Limit  int
}

// NewPageRequest computes the window for pageNumber. When alwaysReadFromZero is
// set the offset stays at zero, for sources whose result set shrinks as the
// step updates the rows it has read.
func NewPageRequest(pageNumber, pageSize int, alwaysReadFromZero bool) PageRequest {
	if alwaysReadFromZero || pageNumber <= 0 {
		return PageRequest{Offset: 0, Limit: pageSize}
	}
	return PageRequest{Offset: pageNumber * pageSize, Limit: pageSize}
}
