package testsuite

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

const manifestPrefixes = `@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix mf: <http://www.w3.org/2001/sw/DataAccess/tests/test-manifest#> .
@prefix rdft: <http://www.w3.org/ns/rdftest#> .
`

var suiteFiles = map[string]string{
	"manifest.ttl": `@base <http://example.org/tests/manifest.ttl> .
` + manifestPrefixes + `
<> rdf:type mf:Manifest ;
   mf:include ( <sub/manifest.ttl> <manifest.ttl> ) ;
   mf:entries ( <#eval> <#mismatch> <#bad> <#c14n> <#trig> ) .

<#eval> rdf:type rdft:TestTurtleEval ;
   mf:name "eval" ;
   rdfs:comment "relative IRIs resolve against the action" ;
   rdft:approval rdft:Approved ;
   mf:action <eval.ttl> ;
   mf:result <eval.nt> .

<#mismatch> rdf:type rdft:TestTurtleEval ;
   mf:name "mismatch" ;
   mf:action <mismatch.ttl> ;
   mf:result <eval.nt> .

<#bad> rdf:type rdft:TestNTriplesNegativeSyntax ;
   mf:name "bad" ;
   mf:action <bad.nt> .

<#c14n> rdf:type rdft:TestNTriplesPositiveC14N ;
   mf:name "c14n" ;
   mf:action <eval.nt> .

<#trig> rdf:type rdft:TestTrigEval ;
   mf:name "trig" ;
   mf:action <graph.trig> ;
   mf:result <graph.nq> .
`,
	"sub/manifest.ttl": `@base <http://example.org/tests/sub/manifest.ttl> .
` + manifestPrefixes + `
<> rdf:type mf:Manifest ;
   mf:entries ( [ rdf:type rdft:TestNTriplesPositiveSyntax ; mf:name "good" ; mf:action <good.nt> ] ) .
`,
	"eval.ttl":     "<s> <p> <o> .\n",
	"eval.nt":      "<http://example.org/tests/s> <http://example.org/tests/p> <http://example.org/tests/o> .\n",
	"mismatch.ttl": "<s> <p> \"o\" .\n",
	"bad.nt":       "this is not a statement\n",
	"graph.trig":   "<g> { <s> <p> _:x . }\n",
	"graph.nq":     "<http://example.org/tests/s> <http://example.org/tests/p> _:b0 <http://example.org/tests/g> .\n",
	"sub/good.nt":  "<http://example.org/a> <http://example.org/b> \"c\"@en .\n",
}

func writeSuite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range suiteFiles {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "manifest.ttl")
}

func TestParseManifest(t *testing.T) {
	path := writeSuite(t)
	m, err := ParseManifest(context.Background(), path, log.New(io.Discard))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	var names []string
	for _, c := range m.Tests {
		names = append(names, c.Name)
	}
	expected := []string{"good", "eval", "mismatch", "bad", "c14n", "trig"}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Errorf("test order mismatch (-want +got):\n%s", diff)
	}

	eval := m.Tests[1]
	if eval.Type != TestTypeTurtleEval || !eval.Approved {
		t.Errorf("unexpected eval entry %+v", eval)
	}
	if eval.Action.IRI != "http://example.org/tests/eval.ttl" {
		t.Errorf("action IRI %q", eval.Action.IRI)
	}
	if eval.Action.Path != filepath.Join(filepath.Dir(path), "eval.ttl") {
		t.Errorf("action path %q", eval.Action.Path)
	}
	if eval.Comment == "" {
		t.Error("Expected the rdfs:comment to be read")
	}
	if good := m.Tests[0]; good.Action.Path != filepath.Join(filepath.Dir(path), "sub", "good.nt") {
		t.Errorf("included action path %q", good.Action.Path)
	}
}

func TestRunManifest(t *testing.T) {
	path := writeSuite(t)
	var out bytes.Buffer
	r := NewRunner(&out, log.New(io.Discard))
	if err := r.RunManifest(context.Background(), path); err != nil {
		t.Fatalf("RunManifest: %v", err)
	}

	stats := r.Stats()
	got := []int{stats.Total, stats.Passed, stats.Failed, stats.Skipped}
	if diff := cmp.Diff([]int{6, 4, 1, 1}, got); diff != "" {
		t.Errorf("total/passed/failed/skipped mismatch (-want +got):\n%s\n%s", diff, out.String())
	}
	if len(stats.Errors) != 1 || stats.Errors[0].TestName != "mismatch" {
		t.Errorf("unexpected failures %+v", stats.Errors)
	}
	for _, want := range []string{"PASS: eval", "FAIL: mismatch", "SKIP: c14n (type: TestNTriplesPositiveC14N)", "TEST SUMMARY"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in report:\n%s", want, out.String())
		}
	}
}

func TestParseManifest_NoManifestNode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.ttl")
	if err := os.WriteFile(path, []byte("<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseManifest(context.Background(), path, log.New(io.Discard)); err == nil {
		t.Error("Expected an error for a document without mf:Manifest")
	}
}
