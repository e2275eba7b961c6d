package snapfit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// Uploader attaches a prepared file to an outgoing request.
type Uploader interface {
	Upload(ctx context.Context, f File) error
}

// UploadError reports a non-2xx response from the upload endpoint.
type UploadError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("snapfit: upload to %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// HTTPUploader posts a file as one part of a multipart/form-data body.
type HTTPUploader struct {
	// URL is the endpoint that receives the form.
	URL string

	// FieldName is the form field of the file part. Empty means "file".
	FieldName string

	// Header is added to every request, e.g. for authorization.
	Header http.Header

	// Client performs the request. Nil means http.DefaultClient.
	Client *http.Client
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, f File) error {
	field := u.FieldName
	if field == "" {
		field = "file"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	h.Set("Content-Type", f.MIMEType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("snapfit: build form: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("snapfit: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("snapfit: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, &body)
	if err != nil {
		return fmt.Errorf("snapfit: new request: %w", err)
	}
	for k, vs := range u.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("snapfit: upload to %s: %w", u.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &UploadError{URL: u.URL, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Pipeline takes a user-selected file, fits it into the byte budget and
// hands the result to an Uploader.
type Pipeline struct {
	Compressor *Compressor
	Target     Target
	Uploader   Uploader
	Logger     *slog.Logger

	// UploadOriginalOnDecodeError uploads the source unchanged when it
	// cannot be decoded. By default the run aborts with the *DecodeError.
	UploadOriginalOnDecodeError bool
}

// Run fetches the source from p, compresses it and uploads the output.
// The returned Result describes what was uploaded.
func (p *Pipeline) Run(ctx context.Context, provider SourceProvider) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := p.Compressor
	if c == nil {
		c = New(WithLogger(logger))
	}

	src, err := provider.Source(ctx)
	if err != nil {
		return nil, err
	}

	result, err := c.Compress(src, p.Target)
	if err != nil {
		if !errors.Is(err, ErrDecode) || !p.UploadOriginalOnDecodeError {
			return nil, err
		}
		logger.WarnContext(ctx, "uploading original after decode failure", "name", src.Name, "error", err)
		result = &Result{File: src, Outcome: SourceFallback, OriginalSize: src.Size()}
		result.computeStats()
	}

	if p.Uploader == nil {
		return result, nil
	}
	if err := p.Uploader.Upload(ctx, result.File); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "uploaded", "name", result.File.Name,
		"outcome", result.Outcome.String(), "bytes", result.CompressedSize)
	return result, nil
}
