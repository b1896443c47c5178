package store

import "github.com/smileynet/postdeck/internal/post"

// reconcileFunc maps an old snapshot to a new one after a mutation settled.
// Implementations must not modify their input.
type reconcileFunc func([]post.Post) []post.Post

// prepend returns posts with p at the front. An existing entry with the same
// ID is dropped so IDs stay unique.
func prepend(posts []post.Post, p post.Post) []post.Post {
	out := make([]post.Post, 0, len(posts)+1)
	out = append(out, p)
	for _, q := range posts {
		if q.ID != p.ID {
			out = append(out, q)
		}
	}
	return out
}

// without returns posts minus the entry with the given ID.
// Missing IDs yield an equal copy.
func without(posts []post.Post, id post.ID) []post.Post {
	out := make([]post.Post, 0, len(posts))
	for _, q := range posts {
		if q.ID != id {
			out = append(out, q)
		}
	}
	return out
}

// dedupe keeps the first occurrence of every ID.
func dedupe(posts []post.Post) []post.Post {
	seen := make(map[post.ID]struct{}, len(posts))
	out := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func clone(posts []post.Post) []post.Post {
	if posts == nil {
		return nil
	}
	return append([]post.Post(nil), posts...)
}
