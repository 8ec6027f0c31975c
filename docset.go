package torod

import d "github.com/ostafen/torod/document"

// docSet is an insertion ordered set of documents.
// Structurally equal documents share the same fingerprint and are stored once.
type docSet struct {
	index map[string]struct{}
	docs  []*d.Document
}

func newDocSet() *docSet {
	return &docSet{index: make(map[string]struct{})}
}

// Add inserts doc, reporting whether it was not already present.
func (s *docSet) Add(doc *d.Document) (bool, error) {
	fp, err := doc.Fingerprint()
	if err != nil {
		return false, err
	}

	if _, ok := s.index[string(fp)]; ok {
		return false, nil
	}
	s.index[string(fp)] = struct{}{}
	s.docs = append(s.docs, doc)
	return true, nil
}

func (s *docSet) Len() int {
	return len(s.docs)
}

func (s *docSet) Documents() []*d.Document {
	return s.docs
}
