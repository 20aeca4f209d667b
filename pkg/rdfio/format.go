// Package rdfio connects byte sources, parsers and writers: it resolves a
// format from a name, opens (de)compressed streams and picks the write
// strategy each output syntax needs.
package rdfio

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsupportedFormat is returned for a format tag, extension or media type
// that no reader or writer handles.
var ErrUnsupportedFormat = errors.New("rdfio: unsupported format")

// Format names a serialization.
type Format string

const (
	NTriples Format = "ntriples"
	NQuads   Format = "nquads"
	Turtle   Format = "turtle"
	N3       Format = "n3"
	TriG     Format = "trig"
	RDFXML   Format = "rdfxml"
	TriX     Format = "trix"
	Freebase Format = "freebase"
	Sindice  Format = "sindice"
)

// Strategy is the write path a sink takes.
type Strategy int

const (
	// StrategyStream writes each statement as it arrives.
	StrategyStream Strategy = iota + 1
	// StrategyGroupGraph buffers and replays graph by graph.
	StrategyGroupGraph
	// StrategyGroupGraphSubject buffers and replays graph by graph, subject
	// by subject.
	StrategyGroupGraphSubject
	// StrategyPretty buffers the whole document for a pretty writer.
	StrategyPretty
)

func (s Strategy) String() string {
	switch s {
	case StrategyStream:
		return "stream"
	case StrategyGroupGraph:
		return "group graph"
	case StrategyGroupGraphSubject:
		return "group graph+subject"
	case StrategyPretty:
		return "pretty"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// FormatInfo describes a registered format.
type FormatInfo struct {
	Name       Format
	Extensions []string
	MediaTypes []string
	Readable   bool
	Writable   bool
	// Graphs reports whether the syntax carries graph names.
	Graphs bool
	// Stream and Pretty are the strategies for pretty=false and pretty=true.
	Stream Strategy
	Pretty Strategy
}

var formats = []FormatInfo{
	{Name: NTriples, Extensions: []string{".nt"}, MediaTypes: []string{"application/n-triples", "text/plain"},
		Readable: true, Writable: true, Stream: StrategyStream, Pretty: StrategyStream},
	{Name: NQuads, Extensions: []string{".nq"}, MediaTypes: []string{"application/n-quads"},
		Readable: true, Writable: true, Graphs: true, Stream: StrategyStream, Pretty: StrategyStream},
	{Name: Turtle, Extensions: []string{".ttl"}, MediaTypes: []string{"text/turtle", "application/x-turtle"},
		Readable: true, Writable: true, Stream: StrategyStream, Pretty: StrategyPretty},
	{Name: N3, Extensions: []string{".n3"}, MediaTypes: []string{"text/n3", "text/rdf+n3"},
		Readable: true, Writable: true, Stream: StrategyStream, Pretty: StrategyPretty},
	{Name: TriG, Extensions: []string{".trig"}, MediaTypes: []string{"application/trig", "application/x-trig"},
		Readable: true, Writable: true, Graphs: true, Stream: StrategyGroupGraphSubject, Pretty: StrategyGroupGraphSubject},
	{Name: RDFXML, Extensions: []string{".rdf", ".owl", ".xml"}, MediaTypes: []string{"application/rdf+xml"},
		Readable: true, Writable: true, Stream: StrategyStream, Pretty: StrategyPretty},
	{Name: TriX, Extensions: []string{".trix"}, MediaTypes: []string{"application/trix"},
		Readable: true, Writable: true, Graphs: true, Stream: StrategyGroupGraph, Pretty: StrategyGroupGraph},
	{Name: Freebase, Extensions: []string{".freebase", ".tsv"}, Readable: true},
	{Name: Sindice, Extensions: []string{".sdetar", ".tar"}, Readable: true},
}

var aliases = map[string]Format{
	"nt":      NTriples,
	"nq":      NQuads,
	"ttl":     Turtle,
	"rdf/xml": RDFXML,
	"rdf":     RDFXML,
	"xml":     RDFXML,
	"sde":     Sindice,
	"tsv":     Freebase,
}

// Formats returns the registry in display order.
func Formats() []FormatInfo {
	return append([]FormatInfo(nil), formats...)
}

// Lookup returns the registry entry for f.
func Lookup(f Format) (FormatInfo, error) {
	for _, info := range formats {
		if info.Name == f {
			return info, nil
		}
	}
	return FormatInfo{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

// Dispatch maps an output format and the pretty flag to a write strategy.
func Dispatch(f Format, pretty bool) (Strategy, error) {
	info, err := Lookup(f)
	if err != nil {
		return 0, err
	}
	if !info.Writable {
		return 0, fmt.Errorf("%w: %s cannot be written", ErrUnsupportedFormat, f)
	}
	if pretty {
		return info.Pretty, nil
	}
	return info.Stream, nil
}

// ParseFormat accepts a format tag, a common alias, an extension or a media
// type. Media type parameters such as charset are ignored.
func ParseFormat(name string) (Format, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if idx := strings.Index(n, ";"); idx != -1 {
		n = strings.TrimSpace(n[:idx])
	}
	for _, info := range formats {
		if string(info.Name) == n {
			return info.Name, nil
		}
		for _, mt := range info.MediaTypes {
			if mt == n {
				return info.Name, nil
			}
		}
		for _, ext := range info.Extensions {
			if ext == n || ext[1:] == n {
				return info.Name, nil
			}
		}
	}
	if f, ok := aliases[n]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatForName guesses the format of a file name or URL from its
// extension, ignoring a trailing compression suffix.
func FormatForName(name string) (Format, error) {
	if i := strings.IndexAny(name, "?#"); i >= 0 && isURL(name) {
		name = name[:i]
	}
	base, _ := CompressionForName(name)
	ext := strings.ToLower(path.Ext(base))
	if ext == "" {
		return "", fmt.Errorf("%w: no extension in %q", ErrUnsupportedFormat, name)
	}
	for _, info := range formats {
		for _, e := range info.Extensions {
			if e == ext {
				return info.Name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
}
