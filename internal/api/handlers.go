package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/service"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 1 << 20

var errNoActor = errors.New("no authenticated user on request")

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return validation.Parse(http.MaxBytesReader(w, r.Body, maxJSONBytes), dst)
}

// requiredQuery returns the trimmed query parameter or a validation error.
func requiredQuery(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", validation.Invalid(name, "required")
	}
	return v, nil
}

func actorFrom(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	actor, ok := service.ActorFromContext(r.Context())
	if !ok || actor.UserID == "" {
		fail(w, r, "user", errNoActor)
		return service.Actor{}, false
	}
	return actor, true
}

// parseMultipart caps the body and parses a multipart form.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if r.ContentLength > s.maxUpload {
		return &http.MaxBytesError{Limit: s.maxUpload}
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return &validation.Error{Err: fmt.Errorf("parse multipart form: %w", err)}
	}
	return nil
}

// formFile returns the named part as an upload. The caller closes the file.
func formFile(r *http.Request, field string) (*service.Upload, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, validation.Invalid(field, "required")
	}
	if err != nil {
		return nil, nil, &validation.Error{Err: fmt.Errorf("read %s: %w", field, err)}
	}
	return &service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

// optionalFormFile is formFile that yields nil when the part is absent.
func optionalFormFile(r *http.Request, field string) (*service.Upload, multipart.File, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, nil, nil
	}
	return formFile(r, field)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
