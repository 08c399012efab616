// Package source builds a read-only source model for JS/TS files using
// tree-sitter. The rest of the pipeline only sees plain structs extracted
// here; tree-sitter handles are closed before Parse returns, so a File is
// safe to share across goroutines.
package source

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/quantracode/VibeCheck-sub003/internal/logging"
)

const defaultMaxFileBytes = 2 * 1024 * 1024

// Node is a snapshot of one named syntax node. Byte offsets index into
// File.Text; lines are 1-based.
type Node struct {
	Kind      string
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int
}

// Decl is a function, variable, or class declaration.
type Decl struct {
	Name      string
	Kind      string // "function", "variable", "class", "method"
	Exported  bool
	StartLine int
	EndLine   int
	StartByte int
	EndByte   int
}

// Import is one ES import or CommonJS require.
type Import struct {
	Module string
	Names  []string
	Line   int
}

// Comment is one line or block comment, markers stripped.
type Comment struct {
	Text string
	Line int
}

// File is the parsed source model for a single file.
type File struct {
	Path string
	Text string

	nodes       []Node
	decls       []Decl
	imports     []Import
	comments    []Comment
	lineOffsets []int
}

// Provider parses files into source models. A nil *File from Parse means
// the file could not be parsed; that is non-fatal and the file is skipped.
type Provider struct {
	maxFileBytes int
}

// NewProvider returns a Provider with the default size limit.
func NewProvider() *Provider {
	return &Provider{maxFileBytes: defaultMaxFileBytes}
}

// Parse builds a File for the given path and content. Returns nil when the
// file is too large, not valid UTF-8, or tree-sitter fails outright.
func (p *Provider) Parse(ctx context.Context, path string, content []byte) *File {
	log := logging.New("source")
	if len(content) > p.maxFileBytes {
		log.Warn("file exceeds size limit, skipping", "path", path, "bytes", len(content))
		return nil
	}
	if !utf8.Valid(content) {
		log.Warn("file is not valid UTF-8, skipping", "path", path)
		return nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(languageFor(path))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		log.Warn("parse failed, skipping", "path", path, "error", err)
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		log.Warn("parser returned no root node, skipping", "path", path)
		return nil
	}

	f := &File{
		Path: filepath.ToSlash(path),
		Text: string(content),
	}
	f.buildLineOffsets()
	f.extract(root, content)
	return f
}

func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx", ".jsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func (f *File) buildLineOffsets() {
	f.lineOffsets = append(f.lineOffsets, 0)
	for i, r := range f.Text {
		if r == '\n' {
			f.lineOffsets = append(f.lineOffsets, i+1)
		}
	}
}

// LineForOffset maps a byte offset to a 1-based line number.
func (f *File) LineForOffset(off int) int {
	if off < 0 {
		return 1
	}
	idx := sort.Search(len(f.lineOffsets), func(i int) bool {
		return f.lineOffsets[i] > off
	})
	return idx
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() int {
	return len(f.lineOffsets)
}

// Line returns the text of a 1-based line, without the trailing newline.
func (f *File) Line(n int) string {
	if n < 1 || n > len(f.lineOffsets) {
		return ""
	}
	start := f.lineOffsets[n-1]
	end := len(f.Text)
	if n < len(f.lineOffsets) {
		end = f.lineOffsets[n] - 1
	}
	if start > end {
		return ""
	}
	return f.Text[start:end]
}

// Snippet returns the trimmed text of a line for use as evidence.
func (f *File) Snippet(line int) string {
	return strings.TrimSpace(f.Line(line))
}

// NodeText returns the source text covered by a node.
func (f *File) NodeText(n Node) string {
	if n.StartByte < 0 || n.EndByte > len(f.Text) || n.StartByte > n.EndByte {
		return ""
	}
	return f.Text[n.StartByte:n.EndByte]
}

// FindNodes returns every node satisfying the predicate, in document order.
func (f *File) FindNodes(pred func(Node) bool) []Node {
	var out []Node
	for _, n := range f.nodes {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out
}

// FindKind returns every node of the given syntax kind, in document order.
func (f *File) FindKind(kind string) []Node {
	return f.FindNodes(func(n Node) bool { return n.Kind == kind })
}

// Declarations returns the file's function/variable/class declarations.
func (f *File) Declarations() []Decl {
	return f.decls
}

// Imports returns the file's import and require declarations.
func (f *File) Imports() []Import {
	return f.imports
}

// Comments returns the file's comments with markers stripped.
func (f *File) Comments() []Comment {
	return f.comments
}

// HasImport reports whether any import's module path contains the substring.
func (f *File) HasImport(substr string) bool {
	substr = strings.ToLower(substr)
	for _, imp := range f.imports {
		if strings.Contains(strings.ToLower(imp.Module), substr) {
			return true
		}
	}
	return false
}

func (f *File) extract(root *sitter.Node, content []byte) {
	var walk func(node *sitter.Node, exported bool)
	walk = func(node *sitter.Node, exported bool) {
		if node == nil {
			return
		}
		snap := Node{
			Kind:      node.Type(),
			StartByte: int(node.StartByte()),
			EndByte:   int(node.EndByte()),
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
		}
		f.nodes = append(f.nodes, snap)

		switch node.Type() {
		case "comment":
			f.comments = append(f.comments, Comment{
				Text: stripCommentMarkers(node.Content(content)),
				Line: snap.StartLine,
			})
		case "import_statement":
			f.addImport(node, content, snap.StartLine)
		case "function_declaration", "generator_function_declaration":
			f.addDecl(node, content, "function", exported)
		case "class_declaration":
			f.addDecl(node, content, "class", exported)
		case "method_definition":
			f.addDecl(node, content, "method", exported)
		case "lexical_declaration", "variable_declaration":
			f.addVariableDecls(node, content, exported)
		}

		childExported := exported || node.Type() == "export_statement"
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i), childExported)
		}
	}
	walk(root, false)
}

func (f *File) addImport(node *sitter.Node, content []byte, line int) {
	imp := Import{Line: line}
	if src := node.ChildByFieldName("source"); src != nil {
		imp.Module = trimQuotes(src.Content(content))
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "import_clause" {
			continue
		}
		collectImportNames(child, content, &imp.Names)
	}
	if imp.Module != "" {
		f.imports = append(f.imports, imp)
	}
}

func collectImportNames(node *sitter.Node, content []byte, names *[]string) {
	switch node.Type() {
	case "identifier":
		*names = append(*names, node.Content(content))
		return
	case "import_specifier":
		if name := node.ChildByFieldName("name"); name != nil {
			*names = append(*names, name.Content(content))
		}
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectImportNames(node.NamedChild(i), content, names)
	}
}

func (f *File) addDecl(node *sitter.Node, content []byte, kind string, exported bool) {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Content(content)
	}
	if name == "" {
		return
	}
	f.decls = append(f.decls, Decl{
		Name:      name,
		Kind:      kind,
		Exported:  exported,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	})
}

func (f *File) addVariableDecls(node *sitter.Node, content []byte, exported bool) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		name := ""
		if n := child.ChildByFieldName("name"); n != nil && n.Type() == "identifier" {
			name = n.Content(content)
		}
		if name == "" {
			continue
		}

		// A require() initializer counts as an import, not a declaration.
		if value := child.ChildByFieldName("value"); value != nil && isRequireCall(value, content) {
			if mod := requireModule(value, content); mod != "" {
				f.imports = append(f.imports, Import{
					Module: mod,
					Names:  []string{name},
					Line:   int(child.StartPoint().Row) + 1,
				})
				continue
			}
		}

		f.decls = append(f.decls, Decl{
			Name:      name,
			Kind:      "variable",
			Exported:  exported,
			StartLine: int(child.StartPoint().Row) + 1,
			EndLine:   int(child.EndPoint().Row) + 1,
			StartByte: int(child.StartByte()),
			EndByte:   int(child.EndByte()),
		})
	}
}

func isRequireCall(node *sitter.Node, content []byte) bool {
	if node.Type() != "call_expression" {
		return false
	}
	fn := node.ChildByFieldName("function")
	return fn != nil && fn.Type() == "identifier" && fn.Content(content) == "require"
}

func requireModule(node *sitter.Node, content []byte) string {
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "string" {
			return trimQuotes(arg.Content(content))
		}
	}
	return ""
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch s[0] {
		case '\'', '"', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

func stripCommentMarkers(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "//"):
		return strings.TrimSpace(strings.TrimPrefix(s, "//"))
	case strings.HasPrefix(s, "/*"):
		s = strings.TrimPrefix(s, "/*")
		s = strings.TrimSuffix(s, "*/")
		lines := strings.Split(s, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		}
		return strings.TrimSpace(strings.Join(lines, " "))
	default:
		return s
	}
}
