package world

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package sample

type Server struct {
	addr string
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

func (s *Server) Start() error {
	return nil
}

func helper() {}
`

func TestParseGoSymbols(t *testing.T) {
	p := NewSymbolParser()
	defer p.Close()

	syms, err := p.Parse(context.Background(), "server.go", []byte(goSample))
	require.NoError(t, err)

	names := make(map[string]Symbol, len(syms))
	for _, s := range syms {
		names[s.Name] = s
	}

	require.Contains(t, names, "Server")
	assert.Equal(t, "type", names["Server"].Kind)

	require.Contains(t, names, "NewServer")
	assert.Equal(t, "function", names["NewServer"].Kind)
	assert.Equal(t, "func NewServer(addr string) *Server", names["NewServer"].Signature)
	assert.Contains(t, names["NewServer"].Body, "return &Server{addr: addr}")

	require.Contains(t, names, "Start")
	assert.Equal(t, "method", names["Start"].Kind)

	require.Contains(t, names, "helper")
}

func TestParsePythonSymbols(t *testing.T) {
	p := NewSymbolParser()
	defer p.Close()

	src := "def top(a, b):\n    return a + b\n\nclass Thing:\n    def method(self):\n        pass\n"
	syms, err := p.Parse(context.Background(), "mod.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "top", syms[0].Name)
	assert.Equal(t, "def top(a, b)", syms[0].Signature)
	assert.Equal(t, "Thing", syms[1].Name)
	assert.Equal(t, "class", syms[1].Kind)
}

func TestParseJSSymbols(t *testing.T) {
	p := NewSymbolParser()
	defer p.Close()

	src := "export function render(el) { return el; }\nconst handler = (evt) => evt;\nclass Widget {}\n"
	syms, err := p.Parse(context.Background(), "app.js", []byte(src))
	require.NoError(t, err)

	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"render", "handler", "Widget"}, names)
}

// The parser is shared through a single Workspace, so concurrent tasks hit
// Parse at the same time.
func TestParseIsSafeForConcurrentUse(t *testing.T) {
	p := NewSymbolParser()
	defer p.Close()

	pySample := "def top(a, b):\n    return a + b\n"
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var syms []Symbol
			var err error
			if i%2 == 0 {
				syms, err = p.Parse(context.Background(), "server.go", []byte(goSample))
			} else {
				syms, err = p.Parse(context.Background(), "mod.py", []byte(pySample))
			}
			if err == nil && len(syms) == 0 {
				err = fmt.Errorf("no symbols extracted")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "goroutine %d", i)
	}
}

func TestParseUnsupportedExtension(t *testing.T) {
	p := NewSymbolParser()
	defer p.Close()

	_, err := p.Parse(context.Background(), "notes.txt", []byte("hello"))
	assert.ErrorContains(t, err, "not supported")
}

func TestReadSymbolThroughWorkspace(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"server.go": goSample})

	ws, err := NewWorkspace(root)
	require.NoError(t, err)
	defer ws.Close()

	body, err := ws.ReadSymbol(context.Background(), "server.go", "NewServer")
	require.NoError(t, err)
	assert.Contains(t, body, "func NewServer")

	_, err = ws.ReadSymbol(context.Background(), "server.go", "Missing")
	assert.ErrorContains(t, err, "not found")
}
