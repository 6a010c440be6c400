// Package pathset computes the minimal covering set of directories to watch.
//
// Candidates come from three places: the host's module search paths, the
// containing directory of every loaded source unit, and the directories of
// explicitly configured extra paths. Watching a directory recursively also
// covers every descendant, so the candidate set is reduced to its
// shortest-prefix covering set before registration.
package pathset

import (
	"path/filepath"
	"sort"

	"molt/internal/fsutil"
	"molt/internal/inspect"
)

type trieNode struct {
	children map[string]*trieNode
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

// Reduce returns the shortest-prefix covering set of paths: whenever one
// candidate is an ancestor of another, only the ancestor is kept. The result
// is deduplicated and sorted, so a fixed input always produces the same
// output. An empty input yields an empty result.
func Reduce(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}

	segmented := make([][]string, 0, len(paths))
	for _, path := range paths {
		segmented = append(segmented, fsutil.SplitSegments(path))
	}

	// Longest first: when a shorter path is inserted afterwards, clearing
	// its terminal node discards the descendants the longer paths created.
	sort.SliceStable(segmented, func(i, j int) bool {
		return len(segmented[i]) > len(segmented[j])
	})

	root := newTrieNode()
	for _, segments := range segmented {
		node := root
		for _, segment := range segments {
			child, ok := node.children[segment]
			if !ok {
				child = newTrieNode()
				node.children[segment] = child
			}
			node = child
		}
		node.children = make(map[string]*trieNode)
	}

	var reduced []string
	collectLeaves(root, nil, &reduced)
	sort.Strings(reduced)
	return reduced
}

func collectLeaves(node *trieNode, segments []string, out *[]string) {
	if len(node.children) == 0 {
		*out = append(*out, fsutil.JoinSegments(segments))
		return
	}
	for segment, child := range node.children {
		collectLeaves(child, append(segments, segment), out)
	}
}

// Compute derives the watch set from an introspection snapshot plus the
// configured extra paths. Extra paths and unit files contribute their
// containing directory; search paths are taken as directories themselves.
func Compute(snap inspect.Snapshot, extraPaths []string) []string {
	candidates := make([]string, 0, len(snap.SearchPaths)+len(snap.UnitFiles)+len(extraPaths))

	for _, path := range snap.SearchPaths {
		if path == "" {
			continue
		}
		candidates = append(candidates, fsutil.Abs(path))
	}
	for _, path := range extraPaths {
		if path == "" {
			continue
		}
		candidates = append(candidates, filepath.Dir(fsutil.Abs(path)))
	}
	for _, path := range snap.UnitFiles {
		if path == "" {
			continue
		}
		candidates = append(candidates, filepath.Dir(fsutil.Abs(path)))
	}

	return Reduce(candidates)
}
