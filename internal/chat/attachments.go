package chat

import (
	"context"
	"fmt"

	"github.com/Dhanuzh/dchat/internal/storage"
)

// ResolveAttachments returns a copy of msgs in which every file reference
// that has an id but no payload carries the stored file data. Messages
// without references are shared with the input.
func ResolveAttachments(ctx context.Context, files storage.FileStore, msgs []storage.Message) ([]storage.Message, error) {
	out := make([]storage.Message, len(msgs))
	copy(out, msgs)
	if files == nil {
		return out, nil
	}

	for i, m := range out {
		if len(m.FileDataRef) == 0 {
			continue
		}
		refs := make([]storage.FileDataRef, len(m.FileDataRef))
		for j, ref := range m.FileDataRef {
			if ref.ID != 0 && ref.FileData == nil {
				f, err := files.GetFileData(ctx, ref.ID)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve file data %d: %w", ref.ID, err)
				}
				ref.FileData = f
			}
			refs[j] = ref
		}
		out[i].FileDataRef = refs
	}
	return out, nil
}
