package main

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"vitrine/internal/upload"
)

const (
	unsupportedImageMessage = "Formato de imagem não suportado. Use JPEG, PNG, WEBP ou GIF"
	imageNotUploadedMessage = "A imagem deve ser enviada como arquivo"
)

// errImageNotUploaded rejects an image path in the body that is not the
// row's current one. Stored paths only come from uploads, so a row never
// points at a file another row owns.
var errImageNotUploaded = errors.New("image path was not uploaded by this request")

// saveImage sniffs and stores one uploaded file.
func (app *application) saveImage(ctx context.Context, fh *multipart.FileHeader, folder string) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	img, err := upload.SniffImage(file)
	if err != nil {
		return "", err
	}
	return app.uploads.Save(ctx, folder, img)
}

// saveFormImage stores the file posted under field. ok is false when the
// request carries no such file.
func (app *application) saveFormImage(ctx context.Context, r *http.Request, field, folder string) (path string, ok bool, err error) {
	if r.MultipartForm == nil {
		return "", false, nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return "", false, nil
	}
	path, err = app.saveImage(ctx, files[0], folder)
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// saveFormImages stores every file posted under the given fields, in order.
// On failure the files already written are removed.
func (app *application) saveFormImages(ctx context.Context, r *http.Request, folder string, fields ...string) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var paths []string
	for _, field := range fields {
		for _, fh := range r.MultipartForm.File[field] {
			path, err := app.saveImage(ctx, fh, folder)
			if err != nil {
				app.discardUploads(paths...)
				return nil, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// discardUploads removes files written by a request whose database write
// failed. Nothing references them, so a failure is only logged.
func (app *application) discardUploads(paths ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := app.uploads.Delete(ctx, p); err != nil {
			app.logger.Warnw("failed to discard upload", "path", p, "error", err)
		}
	}
}

func (app *application) uploadErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, upload.ErrUnsupportedType):
		app.badRequestResponse(w, r, unsupportedImageMessage)
		return
	case errors.Is(err, errImageNotUploaded):
		app.badRequestResponse(w, r, imageNotUploadedMessage)
		return
	}
	app.internalServerError(w, r, err)
}

// imageChange is the outcome of an optional image replacement on update.
type imageChange struct {
	changed bool
	value   *string // new column value, nil clears it
	saved   string  // file written by this request
	old     *string
}

// imageUpdate resolves an image column from an uploaded file. In the body
// the column may only be cleared ("" or null) or repeat its current value.
func (app *application) imageUpdate(ctx context.Context, r *http.Request, field, folder string, explicit, current *string) (imageChange, error) {
	c := imageChange{old: current}

	path, ok, err := app.saveFormImage(ctx, r, field, folder)
	if err != nil {
		return c, err
	}
	if ok {
		c.changed, c.value, c.saved = true, &path, path
		return c, nil
	}

	if explicit == nil {
		return c, nil
	}
	v := strings.TrimSpace(*explicit)
	switch {
	case v == "":
		c.changed = true
	case current != nil && v == *current:
	default:
		return c, errImageNotUploaded
	}
	return c, nil
}

func (c imageChange) apply(fields map[string]any, column string) {
	if !c.changed {
		return
	}
	if c.value == nil {
		fields[column] = nil
		return
	}
	fields[column] = *c.value
}

// replaced lists the previous file once the change is committed.
func (c imageChange) replaced() []string {
	if !c.changed || c.old == nil || *c.old == "" {
		return nil
	}
	if c.value != nil && *c.value == *c.old {
		return nil
	}
	return []string{*c.old}
}

// createImage stores the uploaded image of a new row. A non-nil result is a
// file written by this request.
func (app *application) createImage(ctx context.Context, r *http.Request, field, folder string, explicit *string) (*string, error) {
	c, err := app.imageUpdate(ctx, r, field, folder, explicit, nil)
	if err != nil {
		return nil, err
	}
	return c.value, nil
}

// uploaded collects the files written by this request.
func uploaded(paths ...*string) []string {
	var out []string
	for _, p := range paths {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	return out
}
