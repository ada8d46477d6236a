package hooks

import (
	"context"
	"io"

	"github.com/tukey-analytics/tukey/internal/query"
	"github.com/tukey-analytics/tukey/internal/types"
)

// POSFile is a point-of-sale data file to upload
type POSFile struct {
	Name string
	Body io.Reader
}

type POSUploader interface {
	UploadPOS(ctx context.Context, filename string, file io.Reader) (*types.UploadResult, error)
}

func UploadPOS(api POSUploader, cb Callbacks[*types.UploadResult]) *query.Mutation[POSFile, *types.UploadResult] {
	fn := func(ctx context.Context, f POSFile) (*types.UploadResult, error) {
		return api.UploadPOS(ctx, f.Name, f.Body)
	}
	return query.NewMutation(mutationOptions(fn, cb))
}
