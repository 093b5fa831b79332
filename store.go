package mdshow

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned for operations on an unknown document id.
var ErrNotFound = errors.New("document not found")

// Document is one presentation held in memory. Watched documents are backed
// by an external file and exempt from age based expiry; uploaded ones expire
// 24 hours after creation.
type Document struct {
	ID        string
	Filename  string
	Content   string
	Slides    []*Slide
	Meta      DocumentMeta
	Path      string
	Watched   bool
	CreatedAt time.Time

	// serializes ReplaceContent per document: the first update parses and
	// commits fully before the next one starts
	update sync.Mutex
}

// DocumentStore is the process wide registry of parsed documents. It is
// constructed once at startup and handed to every consumer; there are no
// package level globals.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
	log  *logrus.Logger
}

func NewDocumentStore(log *logrus.Logger) *DocumentStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DocumentStore{
		docs: make(map[string]*Document),
		log:  log,
	}
}

// NewDocumentID returns a random identifier for an uploaded document.
func NewDocumentID() string {
	return uuid.NewString()
}

// WatchedDocumentID derives a stable identifier from a file's absolute path,
// so re-watching the same path across restarts yields the same id.
func WatchedDocumentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := md5.Sum([]byte(abs))
	return hex.EncodeToString(sum[:])[:12]
}

// Create parses content and registers the document under id, replacing any
// previous registration for the same id.
func (s *DocumentStore) Create(id, filename, content, path string, watched bool) *Document {
	meta, body := ExtractFrontMatter(content)
	doc := &Document{
		ID:        id,
		Filename:  filename,
		Content:   content,
		Slides:    ParseSlides(body),
		Meta:      meta,
		Path:      path,
		Watched:   watched,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.docs[id] = doc
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"file_id":  id,
		"filename": filename,
		"watched":  watched,
		"slides":   len(doc.Slides),
	}).Info("document registered")

	return doc
}

func (s *DocumentStore) Get(id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// DocumentSnapshot is a consistent view of a document's mutable state:
// either the fully old or the fully new result of a concurrent update,
// never a mix. Callers must read Content, Slides and Meta from here rather
// than from a *Document, which ReplaceContent mutates under the store lock.
type DocumentSnapshot struct {
	Content  string
	Slides   []*Slide
	Meta     DocumentMeta
	Filename string
}

// Snapshot returns a consistent view of the document's state for id.
func (s *DocumentStore) Snapshot(id string) (DocumentSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return DocumentSnapshot{}, ErrNotFound
	}
	return DocumentSnapshot{
		Content:  doc.Content,
		Slides:   doc.Slides,
		Meta:     doc.Meta,
		Filename: doc.Filename,
	}, nil
}

// ReplaceContent is the only mutator of a document's content and slide list.
// It re-parses the document, persists the new content to the backing file
// best effort, swaps (content, slides, meta) in one step and returns the
// fresh slide list. Writers for the same id are mutually exclusive; updates
// to different ids proceed concurrently.
func (s *DocumentStore) ReplaceContent(id, content string) ([]*Slide, error) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	doc.update.Lock()
	defer doc.update.Unlock()

	s.mu.RLock()
	previous := doc.Content
	s.mu.RUnlock()

	meta, body := ExtractFrontMatter(content)
	slides := ParseSlides(body)

	// Skip the write when the bytes are unchanged, so an update that
	// originated on disk does not re-trigger the file watcher.
	if doc.Path != "" && content != previous {
		if err := os.WriteFile(doc.Path, []byte(content), 0644); err != nil {
			// best effort: the in-memory copy is authoritative
			s.log.WithError(err).WithField("path", doc.Path).Warn("persisting document failed")
		}
	}

	s.mu.Lock()
	doc.Content = content
	doc.Slides = slides
	doc.Meta = meta
	s.mu.Unlock()

	return slides, nil
}

// SweepExpired removes every non watched document older than maxAge and
// attempts to delete its backing file, swallowing removal failures. Watched
// documents are categorically exempt regardless of age. Returns the removed
// ids.
func (s *DocumentStore) SweepExpired(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	var expired []*Document
	for id, doc := range s.docs {
		if doc.Watched || doc.CreatedAt.After(cutoff) {
			continue
		}
		delete(s.docs, id)
		expired = append(expired, doc)
	}
	s.mu.Unlock()

	// backing files are deleted off the lock, so readers of other
	// documents are never stalled on disk I/O
	removed := make([]string, 0, len(expired))
	for _, doc := range expired {
		if doc.Path != "" {
			if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
				s.log.WithError(err).WithField("path", doc.Path).Warn("removing expired file failed")
			}
		}
		removed = append(removed, doc.ID)
	}

	if len(removed) > 0 {
		s.log.WithField("count", len(removed)).Info("expired documents removed")
	}
	return removed
}
