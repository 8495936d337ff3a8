// Package cache keeps an index of converted files so unchanged pages are not
// rewritten again on the next run.
package cache

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CacheFileName is the standard name of the cache index file, stored in the
// output directory unless configured otherwise.
const CacheFileName = ".timeismoney.cache"

// CacheSchemaVersion is the version of the Entry layout. Bump it on any
// incompatible change; files with another version are discarded on Load.
const CacheSchemaVersion = "2.0"

const (
	CacheFormatGob  = "gob"
	CacheFormatJSON = "json"
	// DefaultCacheFormat is used when no or an unknown format is configured.
	DefaultCacheFormat = CacheFormatGob
)

const devVersion = "dev"

var (
	// ErrCacheLoad indicates the cache file exists but could not be opened.
	// Undecodable or outdated files are not an error, they load as empty.
	ErrCacheLoad = errors.New("failed to load cache index")

	// ErrCachePersist indicates the index could not be written.
	ErrCachePersist = errors.New("failed to persist cache index")
)

// Entry is the stored state of one converted file.
type Entry struct {
	SourceModTime    time.Time `json:"sourceModTime"`
	SourceHash       string    `json:"sourceHash"`
	ConfigHash       string    `json:"configHash"`
	OutputPath       string    `json:"outputPath"`
	OutputHash       string    `json:"outputHash"`
	Format           string    `json:"format"`
	Matches          int       `json:"matches"`
	Changed          int       `json:"changed"`
	SchemaVersion    string    `json:"schemaVersion"`
	ConverterVersion string    `json:"converterVersion"`
}

// FileHeader precedes the index in the cache file.
type FileHeader struct {
	SchemaVersion    string `json:"schemaVersion"`
	ConverterVersion string `json:"converterVersion"`
}

type jsonFile struct {
	Header FileHeader       `json:"header"`
	Index  map[string]Entry `json:"index"`
}

// CacheManager loads, queries and persists the cache index.
// Check and Update are called concurrently by workers.
type CacheManager interface {
	Load(cachePath string) error
	// Check returns the stored entry and true when filePath was converted
	// from identical content under an identical configuration.
	Check(filePath string, modTime time.Time, contentHash, configHash string) (Entry, bool)
	// Update records entry for filePath. Version fields are filled in by the
	// manager.
	Update(filePath string, entry Entry) error
	Persist(cachePath string) error
}

type fileCacheManager struct {
	mu               sync.RWMutex
	index            map[string]Entry
	logger           *slog.Logger
	schemaVersion    string
	converterVersion string
	format           string
}

// NewFileCacheManager returns a CacheManager persisting to a local file in
// format ("gob" or "json").
func NewFileCacheManager(loggerHandler slog.Handler, schemaVersion, converterVersion, format string) CacheManager {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	format = strings.ToLower(format)
	if format != CacheFormatJSON && format != CacheFormatGob {
		format = DefaultCacheFormat
	}
	if schemaVersion == "" {
		schemaVersion = CacheSchemaVersion
	}
	if converterVersion == "" {
		converterVersion = devVersion
	}
	return &fileCacheManager{
		index: make(map[string]Entry),
		logger: slog.New(loggerHandler).With(
			slog.String("component", "cacheManager"),
			slog.String("format", format),
		),
		schemaVersion:    schemaVersion,
		converterVersion: converterVersion,
		format:           format,
	}
}

// versionCompatible treats "dev" on either side as compatible.
func (c *fileCacheManager) versionCompatible(v string) bool {
	return v == c.converterVersion || v == devVersion || c.converterVersion == devVersion
}

// Load reads the index at cachePath. A missing, corrupt or outdated file
// results in an empty index and a nil error.
func (c *fileCacheManager) Load(cachePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]Entry)

	f, err := os.Open(cachePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Info("Cache file not found, starting with an empty index", "path", cachePath)
			return nil
		}
		c.logger.Error("Cache file could not be opened", "path", cachePath, "error", err.Error())
		return fmt.Errorf("%w: open %q: %w", ErrCacheLoad, cachePath, err)
	}
	defer f.Close()

	var (
		header FileHeader
		index  map[string]Entry
	)
	if c.format == CacheFormatJSON {
		var data jsonFile
		err = json.NewDecoder(f).Decode(&data)
		header, index = data.Header, data.Index
	} else {
		dec := gob.NewDecoder(f)
		if err = dec.Decode(&header); err == nil {
			err = dec.Decode(&index)
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			c.logger.Warn("Cache file is empty or truncated, treating as miss", "path", cachePath)
		} else {
			c.logger.Warn("Cache file could not be decoded, treating as miss", "path", cachePath, "error", err.Error())
		}
		return nil
	}

	if header.SchemaVersion != c.schemaVersion {
		c.logger.Warn("Cache schema version mismatch, invalidating cache",
			"path", cachePath, "fileSchema", header.SchemaVersion, "expectedSchema", c.schemaVersion)
		return nil
	}
	if !c.versionCompatible(header.ConverterVersion) {
		c.logger.Warn("Cache converter version mismatch, invalidating cache",
			"path", cachePath, "fileVersion", header.ConverterVersion, "currentVersion", c.converterVersion)
		return nil
	}
	if index != nil {
		c.index = index
	}
	c.logger.Info("Cache loaded", "path", cachePath, "entries", len(c.index))
	return nil
}

// Check implements CacheManager.
func (c *fileCacheManager) Check(filePath string, modTime time.Time, contentHash, configHash string) (Entry, bool) {
	c.mu.RLock()
	entry, found := c.index[filePath]
	c.mu.RUnlock()

	reason := ""
	switch {
	case !found:
		reason = "not found"
	case entry.SchemaVersion != c.schemaVersion:
		reason = "schema version"
	case !c.versionCompatible(entry.ConverterVersion):
		reason = "converter version"
	case !entry.SourceModTime.Equal(modTime):
		reason = "modTime"
	case entry.SourceHash != contentHash:
		reason = "content hash"
	case entry.ConfigHash != configHash:
		reason = "config hash"
	}
	if reason != "" {
		c.logger.Debug("Cache miss", slog.String("path", filePath), slog.String("reason", reason))
		return Entry{}, false
	}
	c.logger.Debug("Cache hit", slog.String("path", filePath), slog.String("outputHash", entry.OutputHash))
	return entry, true
}

// Update implements CacheManager.
func (c *fileCacheManager) Update(filePath string, entry Entry) error {
	entry.SchemaVersion = c.schemaVersion
	entry.ConverterVersion = c.converterVersion

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		c.index = make(map[string]Entry)
	}
	c.index[filePath] = entry
	c.logger.Debug("Cache index updated", slog.String("path", filePath))
	return nil
}

// Persist writes the index atomically through a temporary file in the same
// directory. An empty index removes the file.
func (c *fileCacheManager) Persist(cachePath string) error {
	c.mu.RLock()
	index := maps.Clone(c.index)
	c.mu.RUnlock()

	if len(index) == 0 {
		if err := os.Remove(cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to remove empty cache file", "path", cachePath, "error", err.Error())
		}
		return nil
	}

	dir := filepath.Dir(cachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %q: %w", ErrCachePersist, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(cachePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temporary file in %q: %w", ErrCachePersist, dir, err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	header := FileHeader{SchemaVersion: c.schemaVersion, ConverterVersion: c.converterVersion}
	if c.format == CacheFormatJSON {
		enc := json.NewEncoder(tmp)
		enc.SetIndent("", "  ")
		err = enc.Encode(jsonFile{Header: header, Index: index})
	} else {
		enc := gob.NewEncoder(tmp)
		if err = enc.Encode(header); err == nil {
			err = enc.Encode(index)
		}
	}
	if err != nil {
		c.logger.Error("Cache encoding failed", "path", cachePath, "error", err.Error())
		return fmt.Errorf("%w: encode %s: %w", ErrCachePersist, c.format, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %q: %w", ErrCachePersist, tmpPath, err)
	}
	if err := os.Rename(tmpPath, cachePath); err != nil {
		c.logger.Error("Cache rename failed", "path", cachePath, "error", err.Error())
		return fmt.Errorf("%w: rename %q: %w", ErrCachePersist, tmpPath, err)
	}
	renamed = true
	c.logger.Info("Cache persisted", "path", cachePath, "entries", len(index))
	return nil
}
