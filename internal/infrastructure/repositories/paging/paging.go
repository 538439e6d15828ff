// Package paging walks page-numbered list endpoints.
package paging

import "context"

// PageSize is the number of entities requested per page.
const PageSize = 100

// FetchFunc returns one page of entities, pages start at 1.
type FetchFunc[T any] func(ctx context.Context, page, perPage int) ([]T, error)

// Collect fetches pages until one comes back shorter than perPage and returns
// the entities deduplicated by id, keeping the first occurrence.
// An error on any page discards everything fetched so far.
func Collect[T any, K comparable](
	ctx context.Context, perPage int, fetch FetchFunc[T], id func(T) K,
) ([]T, error) {
	var (
		all  []T
		seen = make(map[K]struct{})
	)
	for page := 1; ; page++ {
		items, err := fetch(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			key := id(item)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, item)
		}
		if len(items) < perPage {
			return all, nil
		}
	}
}
