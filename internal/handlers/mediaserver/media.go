package mediaserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"example.com/mediaserve/internal/http1"
	"example.com/mediaserve/internal/logger"
	"example.com/mediaserve/internal/server"
)

// MediaFileHandler serves single files from the media directory, whole or as a byte range.
type MediaFileHandler struct {
	mediaDir string
	log      *logger.Logger
}

// NewMediaFileHandler creates a MediaFileHandler. It is a server.HandlerFactory.
func NewMediaFileHandler(mediaDir string, lg *logger.Logger) (server.Handler, error) {
	if mediaDir == "" {
		return nil, fmt.Errorf("MediaFile: media directory cannot be empty")
	}
	if lg == nil {
		lg = logger.NewDiscardLogger()
	}
	return &MediaFileHandler{mediaDir: mediaDir, log: lg}, nil
}

// Serve returns the file named by the percent-decoded request path. A Range header
// yields 206 with the inclusive slice, or a range error when it cannot be satisfied.
func (h *MediaFileHandler) Serve(req *http1.Request) (*http1.Response, error) {
	name, err := url.PathUnescape(strings.TrimPrefix(req.Path(), "/"))
	if err != nil {
		return nil, http1.NewClientErrorWithCause(fmt.Sprintf("failed to decode path %q", req.Path()), err)
	}

	found, err := lookupFile(h.mediaDir, name)
	if err != nil {
		return nil, http1.NewServerError("failed to list media directory", err)
	}
	if !found {
		return nil, http1.NewNotFoundError(fmt.Sprintf("%q is not in the media directory", name))
	}

	contentType, err := ContentTypeFor(name)
	if err != nil {
		return nil, err
	}

	data, err := readListedFile(h.mediaDir, name)
	if err != nil {
		return nil, err
	}
	total := int64(len(data))

	r, hasRange := req.Range()
	if !hasRange {
		h.log.Debug("Serving media file", logger.LogFields{
			"file": name,
			"size": humanize.Bytes(uint64(total)),
		})
		return http1.NewResponse(http.StatusOK, contentType, data), nil
	}

	start, end, ok := r.Resolve(total)
	if !ok {
		return nil, http1.NewInvalidContentRangeError(r, total)
	}
	h.log.Debug("Serving media file range", logger.LogFields{
		"file":  name,
		"range": r.String(),
		"size":  humanize.Bytes(uint64(end - start + 1)),
		"of":    humanize.Bytes(uint64(total)),
	})
	return http1.NewPartialResponse(contentType, data[start:end+1], start, end, total), nil
}
