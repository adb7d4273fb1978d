package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	etlapp "github.com/cashflow/backend/internal/application/etl"
)

// Ensure Opener implements etlapp.SourceOpener
var _ etlapp.SourceOpener = (*Opener)(nil)

// ErrS3NotConfigured is returned for s3:// locations when no S3 source was given
var ErrS3NotConfigured = errors.New("s3 source is not configured")

// Opener routes s3:// locations to S3 and everything else to the local filesystem
type Opener struct {
	s3 *S3Source
}

// NewOpener creates an Opener. s3 may be nil when only local files are read.
func NewOpener(s3 *S3Source) *Opener {
	return &Opener{s3: s3}
}

// Open opens location for reading
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, S3Scheme) {
		if o.s3 == nil {
			return nil, fmt.Errorf("%w: %s", ErrS3NotConfigured, location)
		}
		return o.s3.Open(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, location)
		}
		return nil, fmt.Errorf("failed to open %s: %w", location, err)
	}
	return f, nil
}
