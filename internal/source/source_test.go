package source

import (
	"context"
	"strings"
	"testing"
)

const sampleRoute = `import { z } from "zod";
import { getServerSession } from "next-auth";

// Auth is enforced for this route
const schema = z.object({ name: z.string() });

export async function POST(req) {
  const session = await getServerSession();
  if (!session) {
    return new Response("unauthorized", { status: 401 });
  }
  const body = schema.parse(await req.json());
  return Response.json({ ok: true, name: body.name });
}
`

func parseSample(t *testing.T) *File {
	t.Helper()
	f := NewProvider().Parse(context.Background(), "app/api/users/route.ts", []byte(sampleRoute))
	if f == nil {
		t.Fatal("expected parse to succeed")
	}
	return f
}

func TestParseExtractsImports(t *testing.T) {
	f := parseSample(t)
	if len(f.Imports()) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(f.Imports()))
	}
	if f.Imports()[0].Module != "zod" {
		t.Fatalf("expected first import zod, got %q", f.Imports()[0].Module)
	}
	if !f.HasImport("next-auth") {
		t.Fatal("expected HasImport(next-auth) to be true")
	}
	if f.HasImport("express") {
		t.Fatal("did not expect an express import")
	}
}

func TestParseExtractsDeclarations(t *testing.T) {
	f := parseSample(t)
	var post *Decl
	for i := range f.Declarations() {
		if f.Declarations()[i].Name == "POST" {
			post = &f.Declarations()[i]
		}
	}
	if post == nil {
		t.Fatal("expected a POST declaration")
	}
	if post.Kind != "function" {
		t.Fatalf("expected function kind, got %q", post.Kind)
	}
	if !post.Exported {
		t.Fatal("expected POST to be exported")
	}
	if post.StartLine >= post.EndLine {
		t.Fatalf("bad line range %d-%d", post.StartLine, post.EndLine)
	}
}

func TestParseExtractsComments(t *testing.T) {
	f := parseSample(t)
	found := false
	for _, c := range f.Comments() {
		if strings.Contains(c.Text, "Auth is enforced") {
			found = true
			if c.Line != 4 {
				t.Fatalf("expected comment on line 4, got %d", c.Line)
			}
		}
	}
	if !found {
		t.Fatal("expected the auth comment to be extracted")
	}
}

func TestLineForOffset(t *testing.T) {
	f := parseSample(t)
	if got := f.LineForOffset(0); got != 1 {
		t.Fatalf("offset 0 should be line 1, got %d", got)
	}
	idx := strings.Index(f.Text, "getServerSession()")
	if idx < 0 {
		t.Fatal("fixture changed")
	}
	if got := f.LineForOffset(idx); got != 8 {
		t.Fatalf("expected line 8, got %d", got)
	}
}

func TestSnippet(t *testing.T) {
	f := parseSample(t)
	if got := f.Snippet(9); got != "if (!session) {" {
		t.Fatalf("unexpected snippet %q", got)
	}
}

func TestParseRejectsBinary(t *testing.T) {
	content := []byte{0xff, 0xfe, 0x00, 0x01}
	if f := NewProvider().Parse(context.Background(), "app/blob.ts", content); f != nil {
		t.Fatal("expected nil handle for non-UTF8 content")
	}
}

func TestRequireCountsAsImport(t *testing.T) {
	src := `const express = require("express");
const app = express();
`
	f := NewProvider().Parse(context.Background(), "server.js", []byte(src))
	if f == nil {
		t.Fatal("expected parse to succeed")
	}
	if !f.HasImport("express") {
		t.Fatal("expected require(express) to register as import")
	}
}
