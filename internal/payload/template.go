package payload

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
)

// Engine renders payload templates. Rendering happens once, before a run
// starts, so the runner still receives an opaque, read-only payload.
type Engine struct {
	fileCache map[string][]string
	mu        sync.RWMutex
	funcMap   template.FuncMap
}

// Data is passed to the execution context. UUID is stable within one
// render, so repeated references resolve to the same value.
type Data struct {
	UUID string
}

// NewEngine initializes the engine and its functions.
func NewEngine() *Engine {
	e := &Engine{
		fileCache: make(map[string][]string),
	}

	e.funcMap = template.FuncMap{
		"randomInt":    e.randomInt,
		"randomUUID":   e.randomUUID,
		"randomChoice": e.randomChoice,
		"randomLine":   e.randomLine,
	}

	return e
}

// Preprocess converts bare variables like {{uuid}} to Go template syntax.
func (e *Engine) Preprocess(input string) string {
	s := input
	s = strings.ReplaceAll(s, "{{uuid}}", "{{.UUID}}")
	s = strings.ReplaceAll(s, "{{requestID}}", "{{.UUID}}")
	return s
}

// Parse creates a new template with the engine's functions.
func (e *Engine) Parse(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(e.funcMap).Parse(e.Preprocess(text))
}

// Execute runs the template with data.
func (e *Engine) Execute(t *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render parses and executes text with a fresh Data context.
func (e *Engine) Render(text string) (string, error) {
	t, err := e.Parse("payload", text)
	if err != nil {
		return "", err
	}
	return e.Execute(t, Data{UUID: uuid.New().String()})
}

// --- Functions ---

func (e *Engine) randomInt(min, max int) int {
	if max <= min {
		return min
	}
	return rand.Intn(max-min) + min
}

func (e *Engine) randomUUID() string {
	return uuid.New().String()
}

func (e *Engine) randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.Intn(len(choices))]
}

func (e *Engine) randomLine(filename string) (string, error) {
	e.mu.RLock()
	lines, ok := e.fileCache[filename]
	e.mu.RUnlock()

	if ok {
		if len(lines) == 0 {
			return "", nil
		}
		return lines[rand.Intn(len(lines))], nil
	}

	// Lazy load
	e.mu.Lock()
	defer e.mu.Unlock()

	// Double check
	if lines, ok = e.fileCache[filename]; ok {
		if len(lines) == 0 {
			return "", nil
		}
		return lines[rand.Intn(len(lines))], nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file '%s': %w", filename, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var loaded []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			loaded = append(loaded, line)
		}
	}

	e.fileCache[filename] = loaded
	if len(loaded) == 0 {
		return "", nil
	}

	return loaded[rand.Intn(len(loaded))], nil
}
