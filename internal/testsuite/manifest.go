// Package testsuite runs W3C RDF syntax test manifests (rdf-tests) against
// the readers in this module.
package testsuite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/aleksaelezovic/rdfio/pkg/rdfio"
)

const (
	ManifestNamespace = "http://www.w3.org/2001/sw/DataAccess/tests/test-manifest#"
	TestNamespace     = "http://www.w3.org/ns/rdftest#"
)

var (
	mfManifest   = rdf.NewNamedNode(ManifestNamespace + "Manifest")
	mfEntries    = rdf.NewNamedNode(ManifestNamespace + "entries")
	mfInclude    = rdf.NewNamedNode(ManifestNamespace + "include")
	mfName       = rdf.NewNamedNode(ManifestNamespace + "name")
	mfAction     = rdf.NewNamedNode(ManifestNamespace + "action")
	mfResult     = rdf.NewNamedNode(ManifestNamespace + "result")
	rdftApproval = rdf.NewNamedNode(TestNamespace + "approval")
	rdftApproved = rdf.NewNamedNode(TestNamespace + "Approved")
	rdfsComment  = rdf.NewNamedNode("http://www.w3.org/2000/01/rdf-schema#comment")
)

// Manifest is one manifest file with its entries and those of every
// manifest it includes.
type Manifest struct {
	Path string
	// IRI is the manifest's own IRI, from its @base or its file location.
	IRI   string
	Tests []Case
}

// Case is a single test entry.
type Case struct {
	Name     string
	Type     TestType
	IRI      string
	Action   File
	Result   File
	Approved bool
	Comment  string
}

// File is a test input: the IRI the manifest names it by and the local
// path it was mapped to.
type File struct {
	IRI  string
	Path string
}

// TestType is the local name of an rdft test class.
type TestType string

const (
	TestTypeTurtleEval           TestType = "TestTurtleEval"
	TestTypeTurtlePositiveSyntax TestType = "TestTurtlePositiveSyntax"
	TestTypeTurtleNegativeSyntax TestType = "TestTurtleNegativeSyntax"
	TestTypeTurtleNegativeEval   TestType = "TestTurtleNegativeEval"

	TestTypeNTriplesPositiveSyntax TestType = "TestNTriplesPositiveSyntax"
	TestTypeNTriplesNegativeSyntax TestType = "TestNTriplesNegativeSyntax"

	TestTypeNQuadsPositiveSyntax TestType = "TestNQuadsPositiveSyntax"
	TestTypeNQuadsNegativeSyntax TestType = "TestNQuadsNegativeSyntax"

	TestTypeTrigEval           TestType = "TestTrigEval"
	TestTypeTrigPositiveSyntax TestType = "TestTrigPositiveSyntax"
	TestTypeTrigNegativeSyntax TestType = "TestTrigNegativeSyntax"
	TestTypeTrigNegativeEval   TestType = "TestTrigNegativeEval"

	TestTypeXMLEval           TestType = "TestXMLEval"
	TestTypeXMLNegativeSyntax TestType = "TestXMLNegativeSyntax"
)

// ParseManifest reads the Turtle manifest at path and, recursively, the
// manifests it includes. Each manifest is read once.
func ParseManifest(ctx context.Context, path string, logger *log.Logger) (*Manifest, error) {
	if logger == nil {
		logger = log.Default()
	}
	return parseManifest(ctx, path, logger, make(map[string]bool))
}

func parseManifest(ctx context.Context, path string, logger *log.Logger, visited map[string]bool) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if visited[abs] {
		return &Manifest{Path: path}, nil
	}
	visited[abs] = true

	doc := &rdf.Collector{}
	if _, err := rdfio.ReadFile(ctx, path, rdfio.Turtle, doc, rdfio.ReadOptions{Logger: logger}); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m := &Manifest{Path: path, IRI: doc.Base}
	if m.IRI == "" {
		m.IRI = rdfio.SourceIRI(path)
	}

	g := newGraph(doc.Quads)
	root := g.subjectOfType(mfManifest)
	if root == nil {
		return nil, fmt.Errorf("manifest %s: no mf:Manifest node", path)
	}

	for _, list := range g.objects(root, mfInclude) {
		for _, inc := range g.list(list) {
			node, ok := inc.(*rdf.NamedNode)
			if !ok {
				continue
			}
			sub, err := parseManifest(ctx, m.localPath(node.IRI), logger, visited)
			if err != nil {
				return nil, err
			}
			m.Tests = append(m.Tests, sub.Tests...)
		}
	}

	for _, list := range g.objects(root, mfEntries) {
		for _, entry := range g.list(list) {
			c, ok := m.testCase(g, entry)
			if !ok {
				logger.Debug("entry without a test type", "entry", entry)
				continue
			}
			m.Tests = append(m.Tests, c)
		}
	}
	return m, nil
}

func (m *Manifest) testCase(g *graph, entry rdf.Term) (Case, bool) {
	c := Case{IRI: termValue(entry)}
	for _, t := range g.objects(entry, rdf.RDFType) {
		if iri := termValue(t); strings.HasPrefix(iri, TestNamespace) {
			c.Type = TestType(strings.TrimPrefix(iri, TestNamespace))
		}
	}
	if c.Type == "" {
		return c, false
	}
	c.Name = termValue(g.object(entry, mfName))
	c.Comment = termValue(g.object(entry, rdfsComment))
	if action := g.object(entry, mfAction); action != nil {
		c.Action = File{IRI: termValue(action), Path: m.localPath(termValue(action))}
	}
	if result := g.object(entry, mfResult); result != nil {
		c.Result = File{IRI: termValue(result), Path: m.localPath(termValue(result))}
	}
	if approval := g.object(entry, rdftApproval); approval != nil {
		c.Approved = approval.Equals(rdftApproved)
	}
	if c.Name == "" {
		c.Name = c.IRI
	}
	return c, true
}

// localPath maps an IRI under the manifest's directory IRI to a file next
// to the manifest. file: IRIs map to their path.
func (m *Manifest) localPath(iri string) string {
	dir := m.IRI[:strings.LastIndexByte(m.IRI, '/')+1]
	switch {
	case dir != "" && strings.HasPrefix(iri, dir):
		return filepath.Join(filepath.Dir(m.Path), filepath.FromSlash(iri[len(dir):]))
	case strings.HasPrefix(iri, "file://"):
		return filepath.FromSlash(strings.TrimPrefix(iri, "file://"))
	}
	return iri
}

// graph indexes a manifest document by subject.
type graph struct {
	bySubject map[string][]*rdf.Quad
	quads     []*rdf.Quad
}

func newGraph(quads []*rdf.Quad) *graph {
	g := &graph{bySubject: make(map[string][]*rdf.Quad), quads: quads}
	for _, q := range quads {
		k := q.Subject.String()
		g.bySubject[k] = append(g.bySubject[k], q)
	}
	return g
}

func (g *graph) subjectOfType(class rdf.Term) rdf.Term {
	for _, q := range g.quads {
		if q.Predicate.Equals(rdf.RDFType) && q.Object.Equals(class) {
			return q.Subject
		}
	}
	return nil
}

func (g *graph) objects(s, p rdf.Term) []rdf.Term {
	var out []rdf.Term
	for _, q := range g.bySubject[s.String()] {
		if q.Predicate.Equals(p) {
			out = append(out, q.Object)
		}
	}
	return out
}

func (g *graph) object(s, p rdf.Term) rdf.Term {
	if objs := g.objects(s, p); len(objs) > 0 {
		return objs[0]
	}
	return nil
}

// list returns the members of an rdf:first/rdf:rest collection. A cycle
// ends the list.
func (g *graph) list(head rdf.Term) []rdf.Term {
	var out []rdf.Term
	seen := make(map[string]bool)
	for head != nil && !head.Equals(rdf.RDFNil) && !seen[head.String()] {
		seen[head.String()] = true
		if first := g.object(head, rdf.RDFFirst); first != nil {
			out = append(out, first)
		}
		head = g.object(head, rdf.RDFRest)
	}
	return out
}

func termValue(t rdf.Term) string {
	switch t := t.(type) {
	case *rdf.NamedNode:
		return t.IRI
	case *rdf.BlankNode:
		return "_:" + t.ID
	case *rdf.Literal:
		return t.Value
	}
	return ""
}
