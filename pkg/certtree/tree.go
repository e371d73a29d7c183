// Package certtree keeps certified HTTP responses in a labeled hash tree keyed
// by the paths produced by httpcert.TreePath and computes its root hash.
package certtree

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/przydatek/response-verification/pkg/httpcert"
	"github.com/przydatek/response-verification/pkg/rihash"
)

// ExprLabel is the first label of every key in the tree.
const ExprLabel = "http_expr"

// Domain separators of the labeled hash tree.
const (
	emptyDomain   = "ic-hashtree-empty"
	forkDomain    = "ic-hashtree-fork"
	labeledDomain = "ic-hashtree-labeled"
	leafDomain    = "ic-hashtree-leaf"
)

// ErrPathConflict is returned when a key would be a strict prefix of, or
// extend, a key already in the tree.
var ErrPathConflict = errors.New("certification path conflicts with an existing entry")

// Entry is a certification served under a URL path.
type Entry struct {
	Path          URLPath
	Certification httpcert.Certification
}

// Key returns the full tree key of e:
// ["http_expr", url segments..., terminator, certification path...].
func Key(e Entry) [][]byte {
	key := [][]byte{[]byte(ExprLabel)}
	key = append(key, e.Path.Segments()...)
	return append(key, httpcert.TreePath(e.Certification)...)
}

type node struct {
	children map[string]*node
	terminal bool
}

// Tree is a certification tree. It is safe for concurrent use.
type Tree struct {
	mu   sync.RWMutex
	root *node
	size int
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: &node{}}
}

// Insert adds e. Inserting an entry that is already present is a no-op.
func (t *Tree) Insert(e Entry) error {
	if err := t.insertKey(Key(e)); err != nil {
		return fmt.Errorf("%w: %s", err, e.Path)
	}
	return nil
}

func (t *Tree) insertKey(key [][]byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.root
	for _, label := range key {
		if n.terminal {
			return ErrPathConflict
		}
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[string(label)]
		if !ok {
			child = &node{}
			n.children[string(label)] = child
		}
		n = child
	}

	if n.terminal {
		return nil
	}
	if len(n.children) > 0 {
		return ErrPathConflict
	}
	n.terminal = true
	t.size++
	return nil
}

// Delete removes e and reports whether it was present.
func (t *Tree) Delete(e Entry) bool {
	key := Key(e)

	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.lookup(key)
	if n == nil || !n.terminal {
		return false
	}
	n.terminal = false
	t.size--
	t.prune(key)
	return true
}

// Has reports whether e is in the tree.
func (t *Tree) Has(e Entry) bool {
	key := Key(e)

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.lookup(key)
	return n != nil && n.terminal
}

// Len returns the number of entries.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// RootHash returns the root hash of the labeled hash tree.
func (t *Tree) RootHash() rihash.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return hashNode(t.root)
}

func (t *Tree) lookup(key [][]byte) *node {
	n := t.root
	for _, label := range key {
		child, ok := n.children[string(label)]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

// prune removes nodes along key that no longer lead to any entry.
func (t *Tree) prune(key [][]byte) {
	path := make([]*node, 0, len(key)+1)
	n := t.root
	path = append(path, n)
	for _, label := range key {
		child, ok := n.children[string(label)]
		if !ok {
			break
		}
		n = child
		path = append(path, n)
	}

	for i := len(path) - 1; i > 0; i-- {
		cur := path[i]
		if cur.terminal || len(cur.children) > 0 {
			return
		}
		delete(path[i-1].children, string(key[i-1]))
	}
}

func hashNode(n *node) rihash.Hash {
	if n.terminal {
		return leafHash(nil)
	}
	if len(n.children) == 0 {
		return domainHash(emptyDomain)
	}

	labels := make([]string, 0, len(n.children))
	for label := range n.children {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	level := make([]rihash.Hash, len(labels))
	for i, label := range labels {
		level[i] = labeledHash([]byte(label), hashNode(n.children[label]))
	}
	for len(level) > 1 {
		level = buildNextLevel(level)
	}
	return level[0]
}

// buildNextLevel pairs adjacent hashes into forks. An odd trailing hash is
// carried up unchanged.
func buildNextLevel(hashes []rihash.Hash) []rihash.Hash {
	next := make([]rihash.Hash, 0, (len(hashes)+1)/2)
	for i := 0; i+1 < len(hashes); i += 2 {
		next = append(next, forkHash(hashes[i], hashes[i+1]))
	}
	if len(hashes)%2 != 0 {
		next = append(next, hashes[len(hashes)-1])
	}
	return next
}

func domainSep(domain string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(len(domain)))
	buf.WriteString(domain)
	return buf.Bytes()
}

func domainHash(domain string, parts ...[]byte) rihash.Hash {
	h := sha256.New()
	h.Write(domainSep(domain))
	for _, p := range parts {
		h.Write(p)
	}
	var out rihash.Hash
	copy(out[:], h.Sum(nil))
	return out
}

func leafHash(data []byte) rihash.Hash {
	return domainHash(leafDomain, data)
}

func labeledHash(label []byte, subtree rihash.Hash) rihash.Hash {
	return domainHash(labeledDomain, label, subtree[:])
}

func forkHash(left, right rihash.Hash) rihash.Hash {
	return domainHash(forkDomain, left[:], right[:])
}
