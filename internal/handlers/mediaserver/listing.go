package mediaserver

import (
	"fmt"
	"net/http"
	"strings"

	"example.com/mediaserve/internal/config"
	"example.com/mediaserve/internal/http1"
	"example.com/mediaserve/internal/logger"
	"example.com/mediaserve/internal/server"
)

// ContentTypeListing is the content type of the directory listing.
const ContentTypeListing = "text/plain"

// ListingHandler answers with the newline-separated names of the media files.
type ListingHandler struct {
	mediaDir string
	log      *logger.Logger
}

// NewListingHandler creates a ListingHandler. It is a server.HandlerFactory.
func NewListingHandler(mediaDir string, lg *logger.Logger) (server.Handler, error) {
	if mediaDir == "" {
		return nil, fmt.Errorf("MediaListing: media directory cannot be empty")
	}
	if lg == nil {
		lg = logger.NewDiscardLogger()
	}
	return &ListingHandler{mediaDir: mediaDir, log: lg}, nil
}

// Serve lists the files of the media directory, one name per line.
func (h *ListingHandler) Serve(req *http1.Request) (*http1.Response, error) {
	names, err := ListFiles(h.mediaDir)
	if err != nil {
		return nil, http1.NewServerError("failed to list media directory", err)
	}
	h.log.Debug("Serving media listing", logger.LogFields{
		"files": len(names),
	})
	return http1.NewResponse(http.StatusOK, ContentTypeListing, []byte(strings.Join(names, "\n"))), nil
}

// Register adds the media handler factories to registry under their configured types.
func Register(registry *server.HandlerRegistry) error {
	if err := registry.Register(config.HandlerTypeMediaListing, NewListingHandler); err != nil {
		return err
	}
	return registry.Register(config.HandlerTypeMediaFile, NewMediaFileHandler)
}
