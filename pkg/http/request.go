package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"burnshare/pkg/service"
	"burnshare/pkg/storage"
)

const (
	multipartSlack = 1 << 20
	maxFormValue   = 10 << 20
	maxJSONBody    = 10 << 20
)

var errInvalidBody = errors.New("invalid request body")

// createBody is the wire form of a create request; each variant normalizes
// itself into the one request shape the service validates.
type createBody interface {
	normalize() *service.CreateShareRequest
}

type jsonCreateBody struct {
	ContentType    string `json:"content_type"`
	ContentText    string `json:"content_text"`
	PasscodeLength *int   `json:"passcode_length"`
}

func (b *jsonCreateBody) normalize() *service.CreateShareRequest {
	length := service.DefaultPasscodeLength
	if b.PasscodeLength != nil {
		length = *b.PasscodeLength
	}
	return &service.CreateShareRequest{
		ContentType:    storage.ContentType(b.ContentType),
		ContentText:    b.ContentText,
		PasscodeLength: length,
	}
}

type multipartCreateBody struct {
	values map[string]string
	file   *service.FileUpload
}

func (b *multipartCreateBody) normalize() *service.CreateShareRequest {
	return &service.CreateShareRequest{
		ContentType:    storage.ContentType(b.values["content_type"]),
		ContentText:    b.values["content_text"],
		File:           b.file,
		PasscodeLength: service.ParsePasscodeLength(b.values["passcode_length"]),
	}
}

// parseCreateRequest dispatches on the media type. The returned cleanup
// releases any spooled upload and must always be called.
func parseCreateRequest(w http.ResponseWriter, r *http.Request, maxFileSize int64) (*service.CreateShareRequest, func(), error) {
	noop := func() {}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, noop, &service.ValidationError{Err: service.ErrUnsupportedBody}
	}

	switch mediaType {
	case "application/json":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		var decoded jsonCreateBody
		if err := json.NewDecoder(r.Body).Decode(&decoded); err != nil {
			return nil, noop, &service.ValidationError{Err: errInvalidBody}
		}
		return decoded.normalize(), noop, nil
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+multipartSlack)
		body, cleanup, err := readMultipart(r, maxFileSize)
		if err != nil {
			return nil, noop, err
		}
		return body.normalize(), cleanup, nil
	}
	return nil, noop, &service.ValidationError{Err: service.ErrUnsupportedBody}
}

// readMultipart streams the form. The first file part is spooled to disk and
// measured; an oversized file keeps its measured size so validation can
// report it in its usual order. Parts after a body cut off by the size cap
// are lost.
func readMultipart(r *http.Request, maxFileSize int64) (*multipartCreateBody, func(), error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, &service.ValidationError{Err: errInvalidBody}
	}

	body := &multipartCreateBody{values: map[string]string{}}
	var spool *os.File
	cleanup := func() {
		if spool != nil {
			spool.Close()
			os.Remove(spool.Name())
		}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if body.file != nil && isBodyTooLarge(err) {
				break
			}
			cleanup()
			return nil, nil, &service.ValidationError{Err: errInvalidBody}
		}

		name := part.FormName()
		switch {
		case part.FileName() != "":
			if name != "file" || body.file != nil {
				break
			}
			spool, err = os.CreateTemp("", "burnshare-upload-*")
			if err != nil {
				part.Close()
				return nil, nil, err
			}
			size, err := spoolPart(spool, part, maxFileSize, r.ContentLength)
			if err != nil {
				part.Close()
				cleanup()
				return nil, nil, &service.ValidationError{Err: errInvalidBody}
			}
			body.file = &service.FileUpload{
				Name:     part.FileName(),
				MimeType: part.Header.Get("Content-Type"),
				Size:     size,
				Body:     spool,
			}
		default:
			data, err := io.ReadAll(io.LimitReader(part, maxFormValue+1))
			if err != nil || len(data) > maxFormValue {
				part.Close()
				cleanup()
				return nil, nil, &service.ValidationError{Err: errInvalidBody}
			}
			if _, seen := body.values[name]; !seen {
				body.values[name] = string(data)
			}
		}
		part.Close()
	}
	return body, cleanup, nil
}

// spoolPart copies up to maxFileSize+1 bytes to dst and rewinds it. Past the
// limit the rest is only counted; once the body cap cuts it off, the declared
// request length stands in for the size.
func spoolPart(dst *os.File, part *multipart.Part, maxFileSize, declared int64) (int64, error) {
	n, err := io.Copy(dst, io.LimitReader(part, maxFileSize+1))
	if err != nil {
		if !isBodyTooLarge(err) {
			return 0, err
		}
		return max(n, declared, maxFileSize+1), nil
	}

	size := n
	if n > maxFileSize {
		rest, err := io.Copy(io.Discard, part)
		size += rest
		if err != nil {
			if !isBodyTooLarge(err) {
				return 0, err
			}
			size = max(size, declared)
		}
	}

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// queryInt returns fallback when key is absent or not a number.
func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return n
}
