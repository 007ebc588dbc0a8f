// Package storage reads and writes training data: instance files and labeled
// document folders.
package storage

// LabelSchema holds the known labels of a document folder and how raw
// annotations map onto them.
type LabelSchema struct {
	Types       map[string]string // full name -> short name
	TypesInv    map[string]string // short name -> full name
	NAValue     string
	SkipValue   string
	SimplifyMap map[string]string
}

// Full returns the full name of a short label, or the label itself.
func (s *LabelSchema) Full(label string) string {
	if full, ok := s.TypesInv[label]; ok {
		return full
	}
	return label
}

// Document is one labeled file of a document folder.
type Document struct {
	Path      string // relative to the folder
	URL       string
	Domain    string // see GetDomain
	Label     string // short label, after simplification
	LabelFull string
	Title     string
	Text      string // visible text for HTML, the content otherwise
}
