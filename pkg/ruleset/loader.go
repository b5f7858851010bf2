package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// LoaderConfig contains configuration for reading rule files.
type LoaderConfig struct {
	// MaxFileSize is the largest accepted rule file in bytes.
	// Default: 1 MiB
	MaxFileSize int64

	// Extensions lists the file extensions read from a directory.
	// Default: .yaml, .yml
	Extensions []string

	// SkipHidden skips files and directories starting with a dot.
	// Default: true
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize: 1 << 20,
		Extensions:  []string{".yaml", ".yml"},
		SkipHidden:  true,
	}
}

// Source is a decoded rule file.
type Source struct {
	Path string
	File File

	// ruleLines maps rule index to its line in the file.
	ruleLines []int
}

// Loader reads rule files from the file system.
type Loader struct {
	config *LoaderConfig
}

// NewLoader creates a loader. A nil config uses DefaultLoaderConfig().
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{config: config}
}

// Load reads path, which may be a single file or a directory. Directory
// entries are read recursively in lexical order.
func (l *Loader) Load(path string) ([]*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(path, err)
	}

	if !info.IsDir() {
		src, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return []*Source{src}, nil
	}

	files, err := l.collectFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &LoadError{FilePath: path, Message: "directory contains no rule files"}
	}

	sources := make([]*Source, 0, len(files))
	for _, file := range files {
		src, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// LoadFile reads and decodes a single rule file.
func (l *Loader) LoadFile(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	return l.LoadBytes(path, data)
}

// LoadBytes decodes rule file content. name is used in error messages.
func (l *Loader) LoadBytes(name string, data []byte) (*Source, error) {
	if int64(len(data)) > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: name,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", len(data), l.config.MaxFileSize),
		}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: name, Message: "file contains invalid UTF-8 encoding"}
	}
	return decode(name, data)
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func decode(name string, data []byte) (*Source, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, parseError(name, err)
	}
	if len(root.Content) == 0 {
		return nil, &ParseError{FilePath: name, Message: "file is empty"}
	}

	src := &Source{Path: name}

	// Re-decode strictly so misspelled keys are reported.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&src.File); err != nil && !errors.Is(err, io.EOF) {
		return nil, parseError(name, err)
	}

	src.ruleLines = ruleLines(root.Content[0])
	return src, nil
}

func parseError(name string, err error) *ParseError {
	pe := &ParseError{FilePath: name, Message: strings.TrimPrefix(err.Error(), "yaml: "), Cause: err}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}

// ruleLines returns the line of each entry of the top-level "rules" sequence.
func ruleLines(doc *yaml.Node) []int {
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "rules" || doc.Content[i+1].Kind != yaml.SequenceNode {
			continue
		}
		var lines []int
		for _, item := range doc.Content[i+1].Content {
			lines = append(lines, item.Line)
		}
		return lines
	}
	return nil
}

func (s *Source) ruleLine(i int) int {
	if i < len(s.ruleLines) {
		return s.ruleLines[i]
	}
	return 0
}

// collectFiles returns the rule files under dir in lexical order.
func (l *Loader) collectFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &LoadError{FilePath: path, Message: "failed to walk directory", Cause: err}
		}

		if l.config.SkipHidden && path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !l.hasValidExtension(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// hasValidExtension checks if the file has a rule file extension.
func (l *Loader) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range l.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

func statError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &LoadError{FilePath: path, Message: "file not found", Cause: err}
	case os.IsPermission(err):
		return &LoadError{FilePath: path, Message: "permission denied", Cause: err}
	}
	return &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
}
