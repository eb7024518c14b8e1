package repository

import (
	"github.com/dd0wney/cluso-safety/pkg/audit"
)

// RegisterDocument adds an analysis document under its unique name.
// Registration order is preserved for deterministic iteration and round trips.
func (r *Repository) RegisterDocument(doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("RegisterDocument").Document(doc.DocName()).Cause(ErrClosed)
	}
	name := doc.DocName()
	if name == "" {
		return NewError("RegisterDocument").Document(name).Context("document name is empty").Cause(ErrInvalidOperation)
	}
	if _, exists := r.documents[name]; exists {
		err := NewError("RegisterDocument").Document(name).Cause(ErrDuplicate)
		r.record(audit.ActionCreate, audit.EntityDocument, name, err)
		return err
	}

	r.documents[name] = doc
	r.docOrder = append(r.docOrder, name)
	r.stats.DocumentCount++

	r.record(audit.ActionCreate, audit.EntityDocument, name, nil)
	return nil
}

// GetDocument retrieves an analysis document by name
func (r *Repository) GetDocument(name string) (Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.documents[name]
	if !exists {
		return nil, NewError("GetDocument").Document(name).Cause(ErrNotFound)
	}
	return doc, nil
}

// HasDocument reports whether a document with the name is registered
func (r *Repository) HasDocument(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.documents[name]
	return exists
}

// UnregisterDocument removes a document from the registry
func (r *Repository) UnregisterDocument(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NewError("UnregisterDocument").Document(name).Cause(ErrClosed)
	}
	if _, exists := r.documents[name]; !exists {
		return NewError("UnregisterDocument").Document(name).Cause(ErrNotFound)
	}

	delete(r.documents, name)
	for i, n := range r.docOrder {
		if n == name {
			r.docOrder = append(r.docOrder[:i], r.docOrder[i+1:]...)
			break
		}
	}
	r.stats.DocumentCount--

	r.record(audit.ActionDelete, audit.EntityDocument, name, nil)
	return nil
}

// DocumentsByKind returns all documents of a family tag in registration order
func (r *Repository) DocumentsByKind(kind string) []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Document, 0)
	for _, name := range r.docOrder {
		if doc := r.documents[name]; doc.DocKind() == kind {
			results = append(results, doc)
		}
	}
	return results
}

// AllDocuments returns every document in registration order
func (r *Repository) AllDocuments() []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Document, 0, len(r.docOrder))
	for _, name := range r.docOrder {
		results = append(results, r.documents[name])
	}
	return results
}
