package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/dunetube/dunetube/blob"
)

// HandleShow streams the file behind a preview handle.
func HandleShow(s *Signer, blobs blob.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		target, err := s.Resolve(web.Param(r, "handle"))
		if err != nil {
			return weberr.NotFound(err)
		}

		rc, err := blobs.Open(ctx, target.Ref)
		if errors.Is(err, blob.ErrNotFound) {
			return weberr.NotFound(fmt.Errorf("attachment[%s]: %w", target.AttachmentID, err))
		}
		if err != nil {
			return fmt.Errorf("opening attachment[%s]: %w", target.AttachmentID, err)
		}
		defer rc.Close()

		ctype := mime.TypeByExtension(path.Ext(target.Name))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": target.Name}))
		w.Header().Set("Cache-Control", "private, no-store")
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, rc); err != nil {
			return fmt.Errorf("streaming attachment[%s]: %w", target.AttachmentID, err)
		}
		return nil
	}
}
