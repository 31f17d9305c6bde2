package symbols

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/models"
)

func TestSupportsExt(t *testing.T) {
	assert.True(t, SupportsExt("main.go"))
	assert.True(t, SupportsExt("app.TS"))
	assert.True(t, SupportsExt("component.tsx"))
	assert.True(t, SupportsExt("script.py"))
	assert.False(t, SupportsExt("README.md"))
	assert.False(t, SupportsExt("Makefile"))
}

func TestExtractUnsupportedExtensionErrors(t *testing.T) {
	_, err := Extract(context.Background(), "notes.txt", []byte("hello"))
	require.Error(t, err)
}

func TestExtractGoSymbols(t *testing.T) {
	src := []byte(`package demo

import "fmt"

const answer = 42

type Widget struct {
	Name string
}

type Renderer interface {
	Render() string
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}

func (w *Widget) Render() string {
	return fmt.Sprintf("widget %s", w.Name)
}
`)
	result, err := Extract(context.Background(), "demo.go", src)
	require.NoError(t, err)

	kinds := map[string]models.SymbolKind{}
	for _, s := range result.Symbols {
		kinds[s.Name] = s.Kind
	}
	assert.Equal(t, models.SymbolKindStruct, kinds["Widget"])
	assert.Equal(t, models.SymbolKindInterface, kinds["Renderer"])
	assert.Equal(t, models.SymbolKindFunction, kinds["NewWidget"])
	assert.Equal(t, models.SymbolKindFunction, kinds["Render"])
	assert.Equal(t, models.SymbolKindConst, kinds["answer"])

	for _, s := range result.Symbols {
		if s.Name == "Widget" {
			assert.Greater(t, s.EndLine, s.StartLine, "struct range covers its body")
		}
	}
}

func TestExtractGoDoesNotDuplicateTypeDefinitions(t *testing.T) {
	src := []byte(`package demo

type Widget struct{}
`)
	result, err := Extract(context.Background(), "demo.go", src)
	require.NoError(t, err)

	count := 0
	for _, s := range result.Symbols {
		if s.Name == "Widget" {
			count++
		}
	}
	assert.Equal(t, 1, count, "a struct definition must not also surface as a type alias")
}

func TestExtractGoCallReferences(t *testing.T) {
	src := []byte(`package demo

func helper() int {
	return 1
}

func caller() int {
	return helper()
}
`)
	result, err := Extract(context.Background(), "demo.go", src)
	require.NoError(t, err)

	var found bool
	for _, r := range result.Refs {
		if r.FromSymbolName == "caller" && r.ToName == "helper" {
			found = true
		}
	}
	assert.True(t, found, "call edge caller->helper recorded")
}

func TestExtractPythonSymbols(t *testing.T) {
	src := []byte(`import os

class Shape:
    def area(self):
        return 0

def main():
    return Shape()
`)
	result, err := Extract(context.Background(), "shapes.py", src)
	require.NoError(t, err)

	kinds := map[string]models.SymbolKind{}
	for _, s := range result.Symbols {
		kinds[s.Name] = s.Kind
	}
	assert.Equal(t, models.SymbolKindClass, kinds["Shape"])
	assert.Equal(t, models.SymbolKindFunction, kinds["main"])
	assert.Equal(t, models.SymbolKindFunction, kinds["area"])
}

func TestExtractTypeScriptSymbols(t *testing.T) {
	src := []byte(`interface Props {
  title: string;
}

type ID = string;

class Panel {
}

function mount(p: Props): Panel {
  return new Panel();
}
`)
	result, err := Extract(context.Background(), "panel.ts", src)
	require.NoError(t, err)

	kinds := map[string]models.SymbolKind{}
	for _, s := range result.Symbols {
		kinds[s.Name] = s.Kind
	}
	assert.Equal(t, models.SymbolKindInterface, kinds["Props"])
	assert.Equal(t, models.SymbolKindTypeAlias, kinds["ID"])
	assert.Equal(t, models.SymbolKindClass, kinds["Panel"])
	assert.Equal(t, models.SymbolKindFunction, kinds["mount"])
}
