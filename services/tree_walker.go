package services

import (
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"browser-monitor-worker/domain"
	"browser-monitor-worker/logging"
)

const DefaultMaxDepth = 10

// TreeWalker reads text out of UI trees. Children are released as soon as
// their subtree has been visited; the root belongs to the caller.
type TreeWalker struct {
	logger *zap.Logger
}

func NewTreeWalker(logger *zap.Logger) *TreeWalker {
	return &TreeWalker{logger: logging.OrNop(logger)}
}

// Walk yields the trimmed, non-empty text of every node in pre-order,
// depth-first, left to right. The root is depth 0; nodes at maxDepth or
// deeper are not visited.
func (w *TreeWalker) Walk(root domain.Node, maxDepth int) iter.Seq[string] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return func(yield func(string) bool) {
		w.visit(root, 0, maxDepth, func(n domain.Node, text string) bool {
			if text == "" {
				return true
			}
			return yield(text)
		})
	}
}

// FindByViewID returns the text of the first node whose view id is one of ids.
func (w *TreeWalker) FindByViewID(root domain.Node, ids []string, maxDepth int) (string, bool) {
	if len(ids) == 0 {
		return "", false
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var found string
	var ok bool
	w.visit(root, 0, maxDepth, func(n domain.Node, text string) bool {
		if wanted[n.ViewID()] && text != "" {
			found, ok = text, true
			return false
		}
		return true
	})
	return found, ok
}

// visit reports whether the walk should go on.
func (w *TreeWalker) visit(node domain.Node, depth, maxDepth int, fn func(domain.Node, string) bool) bool {
	if node == nil || depth >= maxDepth {
		return true
	}

	text, err := readText(node)
	if err != nil {
		w.logger.Warn("error reading node, skipping branch", zap.Int("depth", depth), zap.Error(err))
		return true
	}
	if !fn(node, strings.TrimSpace(text)) {
		return false
	}

	count := node.ChildCount()
	for i := 0; i < count; i++ {
		child, err := childAt(node, i)
		if err != nil {
			w.logger.Warn("error reading child", zap.Int("depth", depth), zap.Int("index", i), zap.Error(err))
			continue
		}
		if child == nil {
			continue
		}
		more := func() bool {
			defer child.Release()
			return w.visit(child, depth+1, maxDepth, fn)
		}()
		if !more {
			return false
		}
	}
	return true
}

// readText and childAt turn platform panics into errors so one bad node
// only costs its own branch.
func readText(n domain.Node) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic reading node text: %v", r)
		}
	}()
	return n.Text()
}

func childAt(n domain.Node, i int) (child domain.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			child, err = nil, fmt.Errorf("panic reading child %d: %v", i, r)
		}
	}()
	return n.Child(i)
}
