// Package byterange turns a textual HTTP Range header into a concrete
// half-open byte interval over a resource of known size. Only the single
// "bytes=start-end" form is understood; absent upper bounds always mean
// "through end of resource". Callers map ErrMalformed and ErrUnsatisfiable to
// a 416 response.
package byterange
