package driver

import "context"

// ConfigStager is implemented by drivers that can stage and commit
// configuration. The Eltex driver does not; callers probe for it with
// SupportsConfigStaging instead of calling stubs.
type ConfigStager interface {
	LoadMergeCandidate(ctx context.Context, config string) error
	LoadReplaceCandidate(ctx context.Context, config string) error
	CompareConfig(ctx context.Context) (string, error)
	CommitConfig(ctx context.Context) error
	DiscardConfig(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SupportsConfigStaging reports whether v implements ConfigStager
func SupportsConfigStaging(v any) bool {
	_, ok := v.(ConfigStager)
	return ok
}
